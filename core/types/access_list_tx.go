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

// AccessListTx is the data of EIP-2930 access list transactions.
type AccessListTx struct {
	ChainID    uint64
	Nonce      uint64
	GasPrice   uint256.Int
	Gas        uint64
	To         *common.Address
	Value      uint256.Int
	Data       []byte
	AccessList AccessList // EIP-2930 access list
}

func (tx *AccessListTx) Type() byte                   { return params.AccessListTxType }
func (tx *AccessListTx) GetChainID() uint64           { return tx.ChainID }
func (tx *AccessListTx) GetNonce() uint64             { return tx.Nonce }
func (tx *AccessListTx) GetGas() uint64               { return tx.Gas }
func (tx *AccessListTx) GetTo() *common.Address       { return tx.To }
func (tx *AccessListTx) GetValue() *uint256.Int       { return &tx.Value }
func (tx *AccessListTx) GetData() []byte              { return tx.Data }
func (tx *AccessListTx) GetAccessList() AccessList    { return tx.AccessList }
func (tx *AccessListTx) GetTipCap() *uint256.Int      { return &tx.GasPrice }
func (tx *AccessListTx) GetFeeCap() *uint256.Int      { return &tx.GasPrice }
func (tx *AccessListTx) GetBlobHashes() []common.Hash { return nil }

func (tx *AccessListTx) copy() TxData {
	cpy := *tx
	cpy.To = copyAddressPtr(tx.To)
	cpy.Data = common.CopyBytes(tx.Data)
	cpy.AccessList = tx.AccessList.copy()
	return &cpy
}

func (tx *AccessListTx) fieldsLength() int {
	accessListLen := accessListSize(tx.AccessList)
	return rlp.U64Len(tx.ChainID) +
		rlp.U64Len(tx.Nonce) +
		rlp.Uint256Len(&tx.GasPrice) +
		rlp.U64Len(tx.Gas) +
		rlp.OptionalAddressLen(tx.To == nil) +
		rlp.Uint256Len(&tx.Value) +
		rlp.StringLen(tx.Data) +
		rlp.ListPrefixLen(accessListLen) + accessListLen
}

func (tx *AccessListTx) encodeFields(w io.Writer, b []byte) error {
	// encode ChainID
	if err := rlp.EncodeInt(tx.ChainID, w, b); err != nil {
		return err
	}
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
	if err := rlp.EncodeBytes(tx.Data, w, b); err != nil {
		return err
	}
	// encode AccessList
	return encodeAccessList(tx.AccessList, w, b)
}

func (tx *AccessListTx) decodeFields(s *gethrlp.Stream) error {
	var err error
	if tx.ChainID, err = s.Uint64(); err != nil {
		return fmt.Errorf("read ChainID: %w", err)
	}
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
	return decodeAccessList(&tx.AccessList, s)
}
