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

// DynamicFeeTx is the data of EIP-1559 transactions.
type DynamicFeeTx struct {
	ChainID    uint64
	Nonce      uint64
	TipCap     uint256.Int // max_priority_fee_per_gas
	FeeCap     uint256.Int // max_fee_per_gas
	Gas        uint64
	To         *common.Address
	Value      uint256.Int
	Data       []byte
	AccessList AccessList
}

func (tx *DynamicFeeTx) Type() byte                   { return params.DynamicFeeTxType }
func (tx *DynamicFeeTx) GetChainID() uint64           { return tx.ChainID }
func (tx *DynamicFeeTx) GetNonce() uint64             { return tx.Nonce }
func (tx *DynamicFeeTx) GetGas() uint64               { return tx.Gas }
func (tx *DynamicFeeTx) GetTo() *common.Address       { return tx.To }
func (tx *DynamicFeeTx) GetValue() *uint256.Int       { return &tx.Value }
func (tx *DynamicFeeTx) GetData() []byte              { return tx.Data }
func (tx *DynamicFeeTx) GetAccessList() AccessList    { return tx.AccessList }
func (tx *DynamicFeeTx) GetTipCap() *uint256.Int      { return &tx.TipCap }
func (tx *DynamicFeeTx) GetFeeCap() *uint256.Int      { return &tx.FeeCap }
func (tx *DynamicFeeTx) GetBlobHashes() []common.Hash { return nil }

func (tx *DynamicFeeTx) copy() TxData {
	return tx.copyFields()
}

func (tx *DynamicFeeTx) copyFields() *DynamicFeeTx {
	cpy := *tx
	cpy.To = copyAddressPtr(tx.To)
	cpy.Data = common.CopyBytes(tx.Data)
	cpy.AccessList = tx.AccessList.copy()
	return &cpy
}

// EffectiveGasPrice returns the price per gas paid at the given base fee: the base fee plus the
// priority fee, capped at the max fee. With no base fee the max fee is returned.
func (tx *DynamicFeeTx) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	if baseFee == nil {
		return new(uint256.Int).Set(&tx.FeeCap)
	}
	tip := new(uint256.Int)
	if tx.FeeCap.Gt(baseFee) {
		tip.Sub(&tx.FeeCap, baseFee)
	}
	if tip.Gt(&tx.TipCap) {
		return tip.Add(&tx.TipCap, baseFee)
	}
	return new(uint256.Int).Set(&tx.FeeCap)
}

func (tx *DynamicFeeTx) fieldsLength() int {
	accessListLen := accessListSize(tx.AccessList)
	return rlp.U64Len(tx.ChainID) +
		rlp.U64Len(tx.Nonce) +
		rlp.Uint256Len(&tx.TipCap) +
		rlp.Uint256Len(&tx.FeeCap) +
		rlp.U64Len(tx.Gas) +
		rlp.OptionalAddressLen(tx.To == nil) +
		rlp.Uint256Len(&tx.Value) +
		rlp.StringLen(tx.Data) +
		rlp.ListPrefixLen(accessListLen) + accessListLen
}

func (tx *DynamicFeeTx) encodeFields(w io.Writer, b []byte) error {
	// encode ChainID
	if err := rlp.EncodeInt(tx.ChainID, w, b); err != nil {
		return err
	}
	// encode Nonce
	if err := rlp.EncodeInt(tx.Nonce, w, b); err != nil {
		return err
	}
	// encode MaxPriorityFeePerGas
	if err := rlp.EncodeUint256(&tx.TipCap, w, b); err != nil {
		return err
	}
	// encode MaxFeePerGas
	if err := rlp.EncodeUint256(&tx.FeeCap, w, b); err != nil {
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

func (tx *DynamicFeeTx) decodeFields(s *gethrlp.Stream) error {
	var err error
	if tx.ChainID, err = s.Uint64(); err != nil {
		return fmt.Errorf("read ChainID: %w", err)
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return fmt.Errorf("read Nonce: %w", err)
	}
	if err = s.ReadUint256(&tx.TipCap); err != nil {
		return fmt.Errorf("read MaxPriorityFeePerGas: %w", err)
	}
	if err = s.ReadUint256(&tx.FeeCap); err != nil {
		return fmt.Errorf("read MaxFeePerGas: %w", err)
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
