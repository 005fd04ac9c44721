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
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	gethrlp "github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

// BlobTx is the signable body of an EIP-4844 transaction. The sidecar is not part of it.
type BlobTx struct {
	DynamicFeeTx
	MaxFeePerBlobGas    uint256.Int
	BlobVersionedHashes []common.Hash
}

func (tx *BlobTx) Type() byte                        { return params.BlobTxType }
func (tx *BlobTx) GetBlobHashes() []common.Hash      { return tx.BlobVersionedHashes }
func (tx *BlobTx) GetMaxFeePerBlobGas() *uint256.Int { return &tx.MaxFeePerBlobGas }

// BlobGas is the blob gas consumed by the transaction.
func (tx *BlobTx) BlobGas() uint64 {
	return uint64(len(tx.BlobVersionedHashes)) * params.BlobGasPerBlob
}

// GetEffectiveGasTip is the part of the effective gas price above the base fee, never negative.
func (tx *BlobTx) GetEffectiveGasTip(baseFee *uint256.Int) *uint256.Int {
	if baseFee == nil {
		return new(uint256.Int).Set(&tx.TipCap)
	}
	// return 0 because effectiveFee cant be < 0
	if tx.FeeCap.Lt(baseFee) {
		return uint256.NewInt(0)
	}
	effectiveFee := new(uint256.Int).Sub(&tx.FeeCap, baseFee)
	if tx.TipCap.Lt(effectiveFee) {
		return new(uint256.Int).Set(&tx.TipCap)
	}
	return effectiveFee
}

// Cost is the maximum amount the sender can be charged: gas * max fee + value + blob gas * max blob fee.
func (tx *BlobTx) Cost() *uint256.Int {
	total := new(uint256.Int).SetUint64(tx.Gas)
	total.Mul(total, &tx.FeeCap)
	total.Add(total, &tx.Value)
	blobFee := new(uint256.Int).SetUint64(tx.BlobGas())
	blobFee.Mul(blobFee, &tx.MaxFeePerBlobGas)
	return total.Add(total, blobFee)
}

// Size approximates the memory held by the transaction body, used for pool accounting.
func (tx *BlobTx) Size() int {
	return 8 + // chain_id
		8 + // nonce
		8 + // gas_limit
		16 + // max_fee_per_gas
		16 + // max_priority_fee_per_gas
		1 + common.AddressLength + // to
		16 + // value
		tx.AccessList.Size() + // access_list
		len(tx.Data) + // input
		cap(tx.BlobVersionedHashes)*common.HashLength + // blob hashes size
		16 // max_fee_per_blob_gas
}

func (tx *BlobTx) copy() TxData {
	cpy := &BlobTx{DynamicFeeTx: *tx.DynamicFeeTx.copyFields()}
	cpy.MaxFeePerBlobGas.Set(&tx.MaxFeePerBlobGas)
	cpy.BlobVersionedHashes = append([]common.Hash(nil), tx.BlobVersionedHashes...)
	return cpy
}

func (tx *BlobTx) fieldsLength() int {
	blobHashesLen := rlp.HashesLen(len(tx.BlobVersionedHashes))
	return tx.DynamicFeeTx.fieldsLength() +
		rlp.Uint256Len(&tx.MaxFeePerBlobGas) +
		rlp.ListPrefixLen(blobHashesLen) + blobHashesLen
}

func (tx *BlobTx) encodeFields(w io.Writer, b []byte) error {
	if err := tx.DynamicFeeTx.encodeFields(w, b); err != nil {
		return err
	}
	// encode MaxFeePerBlobGas
	if err := rlp.EncodeUint256(&tx.MaxFeePerBlobGas, w, b); err != nil {
		return err
	}
	// encode BlobVersionedHashes
	return rlp.EncodeHashList(tx.BlobVersionedHashes, w, b)
}

// decodeFields reads the body fields in wire order. Fee and value fields are limited to 128 bits.
func (tx *BlobTx) decodeFields(s *gethrlp.Stream) error {
	var err error
	if tx.ChainID, err = s.Uint64(); err != nil {
		return fmt.Errorf("read ChainID: %w", err)
	}
	if tx.Nonce, err = s.Uint64(); err != nil {
		return fmt.Errorf("read Nonce: %w", err)
	}
	if err = readUint128(s, &tx.TipCap, "MaxPriorityFeePerGas"); err != nil {
		return err
	}
	if err = readUint128(s, &tx.FeeCap, "MaxFeePerGas"); err != nil {
		return err
	}
	if tx.Gas, err = s.Uint64(); err != nil {
		return fmt.Errorf("read Gas: %w", err)
	}
	if tx.To, err = decodeOptionalAddress(s); err != nil {
		return err
	}
	if err = readUint128(s, &tx.Value, "Value"); err != nil {
		return err
	}
	if tx.Data, err = s.Bytes(); err != nil {
		return fmt.Errorf("read Data: %w", err)
	}
	if err = decodeAccessList(&tx.AccessList, s); err != nil {
		return err
	}
	if err = readUint128(s, &tx.MaxFeePerBlobGas, "MaxFeePerBlobGas"); err != nil {
		return err
	}
	if tx.BlobVersionedHashes, err = decodeHashes(s); err != nil {
		return fmt.Errorf("read BlobVersionedHashes: %w", err)
	}
	return nil
}

// DecodeBlobTxFields decodes the body fields from s. The caller has already entered the
// enclosing list and is responsible for leaving it.
func DecodeBlobTxFields(s *gethrlp.Stream) (*BlobTx, error) {
	tx := &BlobTx{}
	if err := tx.decodeFields(s); err != nil {
		return nil, decodeErr(err)
	}
	return tx, nil
}

func decodeHashes(s *gethrlp.Stream) ([]common.Hash, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	var hashes []common.Hash
	for {
		var h common.Hash
		if err := s.ReadBytes(h[:]); err != nil {
			if errors.Is(err, gethrlp.EOL) {
				break
			}
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, s.ListEnd()
}
