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
	"encoding/binary"
	"math/bits"

	"github.com/holiman/uint256"
)

// General design:
//      - rlp package doesn't manage memory - and Caller must ensure buffers are big enough.
//      - length functions are pure and cheap. Every encoder has a matching *Len function and
//        nested structures are measured bottom-up before any list prefix is written.
//
// Composition:
//     - each Encode* method writes to given buffer and returns written len
//     - each Parse accepts position in payload and returns new position
//
// Decoding of whole transactions is done with go-ethereum's rlp.Stream; this package only
// covers prefix arithmetic and the position based parsers used by the pool packets.

func ListPrefixLen(dataLen int) int {
	if dataLen >= 56 {
		return 1 + (bits.Len64(uint64(dataLen))+7)/8
	}
	return 1
}

func EncodeListPrefix(dataLen int, to []byte) int {
	if dataLen >= 56 {
		_ = to[9]
		beLen := (bits.Len64(uint64(dataLen)) + 7) / 8
		binary.BigEndian.PutUint64(to[1:], uint64(dataLen))
		to[8-beLen] = 247 + byte(beLen)
		copy(to, to[8-beLen:9])
		return 1 + beLen
	}
	to[0] = 192 + byte(dataLen)
	return 1
}

// StringPrefixLen is the size of the header of a byte string of the given length.
// Single bytes below 0x80 are their own encoding and have no header; callers handle that
// case through StringLen.
func StringPrefixLen(dataLen int) int {
	if dataLen >= 56 {
		return 1 + (bits.Len64(uint64(dataLen))+7)/8
	}
	return 1
}

func EncodeStringPrefix(dataLen int, to []byte) int {
	if dataLen >= 56 {
		_ = to[9]
		beLen := (bits.Len64(uint64(dataLen)) + 7) / 8
		binary.BigEndian.PutUint64(to[1:], uint64(dataLen))
		to[8-beLen] = 183 + byte(beLen)
		copy(to, to[8-beLen:9])
		return 1 + beLen
	}
	to[0] = 128 + byte(dataLen)
	return 1
}

func U64Len(i uint64) int {
	if i >= 128 {
		return 1 + (bits.Len64(i)+7)/8
	}
	return 1
}

func EncodeU64(i uint64, to []byte) int {
	if i >= 128 {
		beLen := (bits.Len64(i) + 7) / 8
		to[0] = 128 + byte(beLen)
		binary.BigEndian.PutUint64(to[1:], i)
		copy(to[1:], to[1+8-beLen:1+8])
		return 1 + beLen
	}
	if i == 0 {
		to[0] = 128
		return 1
	}
	to[0] = byte(i)
	return 1
}

func Uint256Len(i *uint256.Int) int {
	if i == nil || i.LtUint64(128) {
		return 1
	}
	return 1 + i.ByteLen()
}

func BoolLen(b bool) int {
	return 1
}

func StringLen(s []byte) int {
	sLen := len(s)
	switch {
	case sLen >= 56:
		return 1 + (bits.Len(uint(sLen))+7)/8 + sLen
	case sLen == 1 && s[0] < 128:
		return 1
	default: // 0 or 1<s<56
		return 1 + sLen
	}
}

// OptionalAddressLen is the encoded size of a recipient: an empty string for contract creation,
// a 20 byte string otherwise.
func OptionalAddressLen(isCreate bool) int {
	if isCreate {
		return 1
	}
	return 21
}

// EncodeHash assumes that `to` buffer is already 32bytes long
func EncodeHash(h, to []byte) int {
	_ = to[32] // early bounds check to guarantee safety of writes below
	to[0] = 128 + 32
	copy(to[1:33], h[:32])
	return 33
}

// HashesLen is the payload size of an RLP list of count 32-byte hashes (excluding the list prefix).
func HashesLen(count int) int {
	return count * 33
}

func EncodeHashes(hashes []byte, encodeBuf []byte) int {
	pos := 0
	hashesLen := len(hashes) / 32 * 33
	pos += EncodeListPrefix(hashesLen, encodeBuf)
	for i := 0; i < len(hashes); i += 32 {
		pos += EncodeHash(hashes[i:], encodeBuf[pos:])
	}
	return pos
}
