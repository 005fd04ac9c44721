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

	"github.com/ethereum/go-ethereum/common"
	gethrlp "github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

// LegacyTx is the transaction data of the original Ethereum transactions. ChainID is nil for
// transactions signed before EIP-155 and is carried in the signature's v otherwise.
type LegacyTx struct {
	Nonce    uint64
	GasPrice uint256.Int
	Gas      uint64
	To       *common.Address // nil means contract creation
	Value    uint256.Int
	Data     []byte
	ChainID  *uint64
}

func (tx *LegacyTx) Type() byte { return params.LegacyTxType }

func (tx *LegacyTx) GetChainID() uint64 {
	if tx.ChainID == nil {
		return 0
	}
	return *tx.ChainID
}
func (tx *LegacyTx) GetNonce() uint64             { return tx.Nonce }
func (tx *LegacyTx) GetGas() uint64               { return tx.Gas }
func (tx *LegacyTx) GetTo() *common.Address       { return tx.To }
func (tx *LegacyTx) GetValue() *uint256.Int       { return &tx.Value }
func (tx *LegacyTx) GetData() []byte              { return tx.Data }
func (tx *LegacyTx) GetAccessList() AccessList    { return nil }
func (tx *LegacyTx) GetTipCap() *uint256.Int      { return &tx.GasPrice }
func (tx *LegacyTx) GetFeeCap() *uint256.Int      { return &tx.GasPrice }
func (tx *LegacyTx) GetBlobHashes() []common.Hash { return nil }

func (tx *LegacyTx) copy() TxData {
	cpy := *tx
	cpy.To = copyAddressPtr(tx.To)
	cpy.Data = common.CopyBytes(tx.Data)
	if tx.ChainID != nil {
		id := *tx.ChainID
		cpy.ChainID = &id
	}
	return &cpy
}

func (tx *LegacyTx) fieldsLength() int {
	return rlp.U64Len(tx.Nonce) +
		rlp.Uint256Len(&tx.GasPrice) +
		rlp.U64Len(tx.Gas) +
		rlp.OptionalAddressLen(tx.To == nil) +
		rlp.Uint256Len(&tx.Value) +
		rlp.StringLen(tx.Data)
}

func (tx *LegacyTx) encodeFields(w io.Writer, b []byte) error {
	// encode Nonce
	if err := rlp.EncodeInt(tx.Nonce, w, b); err != nil {
		return err
	}
	// encode GasPrice
	if err := rlp.EncodeUint256(&tx.GasPrice, w, b); err != nil {
		return err
	}
	// encode Gas
	if err := rlp.EncodeInt(tx.Gas, w, b); err != nil {
		return err
	}
	// encode To
	if err := rlp.EncodeOptionalAddress(tx.To, w, b); err != nil {
		return err
	}
	// encode Value
	if err := rlp.EncodeUint256(&tx.Value, w, b); err != nil {
		return err
	}
	// encode Data
	return rlp.EncodeBytes(tx.Data, w, b)
}

func (tx *LegacyTx) decodeFields(s *gethrlp.Stream) error {
	var err error
	if tx.Nonce, err = s.Uint64(); err != nil {
		return fmt.Errorf("read Nonce: %w", err)
	}
	if err = s.ReadUint256(&tx.GasPrice); err != nil {
		return fmt.Errorf("read GasPrice: %w", err)
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return fmt.Errorf("read Gas: %w", err)
	}
	if tx.To, err = decodeOptionalAddress(s); err != nil {
		return err
	}
	if err = s.ReadUint256(&tx.Value); err != nil {
		return fmt.Errorf("read Value: %w", err)
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return fmt.Errorf("read Data: %w", err)
	}
	return nil
}

func copyAddressPtr(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func decodeOptionalAddress(s *gethrlp.Stream) (*common.Address, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, fmt.Errorf("read To: %w", err)
	}
	switch len(b) {
	case 0:
		return nil, nil
	case common.AddressLength:
		to := common.BytesToAddress(b)
		return &to, nil
	default:
		return nil, fmt.Errorf("wrong size for To: %d", len(b))
	}
}

// readUint128 reads an integer field that the protocol bounds to 128 bits.
func readUint128(s *gethrlp.Stream, dst *uint256.Int, field string) error {
	if err := s.ReadUint256(dst); err != nil {
		return fmt.Errorf("read %s: %w", field, err)
	}
	if dst.BitLen() > 128 {
		return fmt.Errorf("read %s: %w", field, ErrValueTooLarge)
	}
	return nil
}
