// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package rlp

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Streaming counterparts of the buffer encoders. Every function takes a scratch buffer b of at
// least 33 bytes which it may overwrite; nothing is retained after return.

// EncodeStructSizePrefix writes the list header for a payload of the given size.
func EncodeStructSizePrefix(size int, w io.Writer, b []byte) error {
	n := EncodeListPrefix(size, b)
	_, err := w.Write(b[:n])
	return err
}

// EncodeStringSizePrefix writes the byte string header for a payload of the given size.
func EncodeStringSizePrefix(size int, w io.Writer, b []byte) error {
	n := EncodeStringPrefix(size, b)
	_, err := w.Write(b[:n])
	return err
}

func EncodeInt(i uint64, w io.Writer, b []byte) error {
	n := EncodeU64(i, b)
	_, err := w.Write(b[:n])
	return err
}

func EncodeUint256(i *uint256.Int, w io.Writer, b []byte) error {
	if i == nil || i.IsZero() {
		b[0] = 128
		_, err := w.Write(b[:1])
		return err
	}
	if i.LtUint64(128) {
		b[0] = byte(i.Uint64())
		_, err := w.Write(b[:1])
		return err
	}
	nBytes := i.ByteLen()
	b[0] = 128 + byte(nBytes)
	i.WriteToSlice(b[1 : 1+nBytes])
	_, err := w.Write(b[:1+nBytes])
	return err
}

func EncodeBool(v bool, w io.Writer, b []byte) error {
	if v {
		b[0] = 0x01
	} else {
		b[0] = 128
	}
	_, err := w.Write(b[:1])
	return err
}

// EncodeBytes writes s as an RLP byte string.
func EncodeBytes(s []byte, w io.Writer, b []byte) error {
	switch {
	case len(s) == 1 && s[0] < 128:
		b[0] = s[0]
		_, err := w.Write(b[:1])
		return err
	default:
		if err := EncodeStringSizePrefix(len(s), w, b); err != nil {
			return err
		}
		_, err := w.Write(s)
		return err
	}
}

// EncodeOptionalAddress writes an empty string for nil (contract creation) and the 20 address
// bytes otherwise.
func EncodeOptionalAddress(a *common.Address, w io.Writer, b []byte) error {
	if a == nil {
		b[0] = 128
		_, err := w.Write(b[:1])
		return err
	}
	b[0] = 128 + common.AddressLength
	copy(b[1:], a[:])
	_, err := w.Write(b[:1+common.AddressLength])
	return err
}

// EncodeHashList writes hashes as an RLP list of 32-byte strings, prefix included.
func EncodeHashList(hashes []common.Hash, w io.Writer, b []byte) error {
	if err := EncodeStructSizePrefix(HashesLen(len(hashes)), w, b); err != nil {
		return err
	}
	for i := range hashes {
		EncodeHash(hashes[i][:], b)
		if _, err := w.Write(b[:33]); err != nil {
			return err
		}
	}
	return nil
}
