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

package types

import (
	"fmt"
	"io"

	gethrlp "github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/erigontech/blobtx/rlp"
)

// Signature is the secp256k1 signature of a transaction. Typed transactions carry the y parity
// directly, legacy ones fold it into v together with the optional EIP-155 chain id.
type Signature struct {
	OddYParity bool
	R, S       uint256.Int
}

// PayloadLength is the encoded length of the typed signature fields (y_parity, r, s).
func (sig *Signature) PayloadLength() int {
	return rlp.BoolLen(sig.OddYParity) + rlp.Uint256Len(&sig.R) + rlp.Uint256Len(&sig.S)
}

// Encode writes y_parity, r and s as three consecutive RLP values.
func (sig *Signature) Encode(w io.Writer, b []byte) error {
	if err := rlp.EncodeBool(sig.OddYParity, w, b); err != nil {
		return err
	}
	if err := rlp.EncodeUint256(&sig.R, w, b); err != nil {
		return err
	}
	return rlp.EncodeUint256(&sig.S, w, b)
}

func (sig *Signature) decode(s *gethrlp.Stream) error {
	parity, err := s.Uint64()
	if err != nil {
		return fmt.Errorf("read YParity: %w", err)
	}
	if parity > 1 {
		return fmt.Errorf("%w: y parity %d", ErrInvalidSig, parity)
	}
	sig.OddYParity = parity == 1
	if err = s.ReadUint256(&sig.R); err != nil {
		return fmt.Errorf("read R: %w", err)
	}
	if err = s.ReadUint256(&sig.S); err != nil {
		return fmt.Errorf("read S: %w", err)
	}
	return nil
}

// legacyV folds the parity and optional chain id into the legacy v value.
func (sig *Signature) legacyV(chainID *uint64) uint64 {
	var v uint64
	if sig.OddYParity {
		v = 1
	}
	if chainID == nil {
		return v + 27
	}
	return v + 35 + *chainID*2
}

func (sig *Signature) legacyPayloadLength(chainID *uint64) int {
	return rlp.U64Len(sig.legacyV(chainID)) + rlp.Uint256Len(&sig.R) + rlp.Uint256Len(&sig.S)
}

func (sig *Signature) encodeLegacy(chainID *uint64, w io.Writer, b []byte) error {
	if err := rlp.EncodeInt(sig.legacyV(chainID), w, b); err != nil {
		return err
	}
	if err := rlp.EncodeUint256(&sig.R, w, b); err != nil {
		return err
	}
	return rlp.EncodeUint256(&sig.S, w, b)
}

// decodeLegacy reads v, r, s and returns the chain id encoded in v, nil for pre EIP-155 signatures.
func (sig *Signature) decodeLegacy(s *gethrlp.Stream) (*uint64, error) {
	v, err := s.Uint64()
	if err != nil {
		return nil, fmt.Errorf("read V: %w", err)
	}
	var chainID *uint64
	switch {
	case v == 27 || v == 28:
		sig.OddYParity = v == 28
	case v >= 35:
		id := (v - 35) / 2
		chainID = &id
		sig.OddYParity = (v-35)%2 == 1
	default:
		return nil, fmt.Errorf("%w: v %d", ErrInvalidSig, v)
	}
	if err = s.ReadUint256(&sig.R); err != nil {
		return nil, fmt.Errorf("read R: %w", err)
	}
	if err = s.ReadUint256(&sig.S); err != nil {
		return nil, fmt.Errorf("read S: %w", err)
	}
	return chainID, nil
}
