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
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	gethrlp "github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	libcommon "github.com/erigontech/blobtx/common"
	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

// TxData is the unsigned payload of a transaction. The set of implementations is closed:
// *LegacyTx, *AccessListTx, *DynamicFeeTx and *BlobTx.
type TxData interface {
	Type() byte
	GetChainID() uint64
	GetNonce() uint64
	GetGas() uint64
	GetTo() *common.Address
	GetValue() *uint256.Int
	GetData() []byte
	GetAccessList() AccessList
	GetTipCap() *uint256.Int
	GetFeeCap() *uint256.Int
	GetBlobHashes() []common.Hash

	// fieldsLength is the encoded length of the payload fields, excluding the signature
	// and any list prefix.
	fieldsLength() int
	encodeFields(w io.Writer, b []byte) error
	decodeFields(s *gethrlp.Stream) error
	copy() TxData
}

func newTxData(txType byte) (TxData, error) {
	switch txType {
	case params.LegacyTxType:
		return &LegacyTx{}, nil
	case params.AccessListTxType:
		return &AccessListTx{}, nil
	case params.DynamicFeeTxType:
		return &DynamicFeeTx{}, nil
	case params.BlobTxType:
		return &BlobTx{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxType, txType)
	}
}

// PooledTransaction is anything a peer can hand out in a PooledTransactions response:
// either a plain signed transaction or a blob transaction together with its sidecar.
type PooledTransaction interface {
	Hash() common.Hash
	Type() byte
	EncodingSize() int
	MarshalBinary(w io.Writer) error
	EncodeRLP(w io.Writer) error

	pooled()
}

// SignedTransaction is a transaction payload together with its signature. The hash is
// computed once at construction from the canonical encoding; neither part may be mutated
// afterwards.
type SignedTransaction struct {
	tx   TxData
	sig  Signature
	hash common.Hash
}

// NewSignedTransaction takes ownership of tx and computes the transaction hash.
func NewSignedTransaction(tx TxData, sig Signature) (*SignedTransaction, error) {
	stx := &SignedTransaction{tx: tx, sig: sig}
	h := libcommon.NewHasher()
	defer libcommon.ReturnHasherToPool(h)
	if err := stx.MarshalBinary(h.Sha); err != nil {
		return nil, err
	}
	hash, err := h.Sum()
	if err != nil {
		return nil, err
	}
	stx.hash = hash
	return stx, nil
}

func (stx *SignedTransaction) pooled() {}

func (stx *SignedTransaction) Payload() TxData      { return stx.tx }
func (stx *SignedTransaction) Signature() Signature { return stx.sig }
func (stx *SignedTransaction) Hash() common.Hash    { return stx.hash }
func (stx *SignedTransaction) Type() byte           { return stx.tx.Type() }

func (stx *SignedTransaction) legacy() (*LegacyTx, bool) {
	tx, ok := stx.tx.(*LegacyTx)
	return tx, ok
}

// FieldsLength is the length of the payload fields followed by the signature fields,
// i.e. the payload of the canonical list.
func (stx *SignedTransaction) FieldsLength() int {
	if tx, ok := stx.legacy(); ok {
		return tx.fieldsLength() + stx.sig.legacyPayloadLength(tx.ChainID)
	}
	return stx.tx.fieldsLength() + stx.sig.PayloadLength()
}

// EncodeFields writes the payload fields and then the signature fields, without a list prefix.
func (stx *SignedTransaction) EncodeFields(w io.Writer, b []byte) error {
	if err := stx.tx.encodeFields(w, b); err != nil {
		return err
	}
	if tx, ok := stx.legacy(); ok {
		return stx.sig.encodeLegacy(tx.ChainID, w, b)
	}
	return stx.sig.Encode(w, b)
}

// EncodingSize returns the length of the canonical encoding.
func (stx *SignedTransaction) EncodingSize() int {
	payloadSize := stx.FieldsLength()
	size := rlp.ListPrefixLen(payloadSize) + payloadSize
	if stx.Type() != params.LegacyTxType {
		size++
	}
	return size
}

// MarshalBinary writes the canonical encoding: the bare RLP list for legacy transactions and
// type || RLP list for typed ones. The transaction hash is keccak256 of exactly these bytes.
func (stx *SignedTransaction) MarshalBinary(w io.Writer) error {
	var b [33]byte
	if stx.Type() != params.LegacyTxType {
		b[0] = stx.Type()
		if _, err := w.Write(b[:1]); err != nil {
			return err
		}
	}
	if err := rlp.EncodeStructSizePrefix(stx.FieldsLength(), w, b[:]); err != nil {
		return err
	}
	return stx.EncodeFields(w, b[:])
}

// EncodeRLP writes the network form used inside RLP lists: legacy transactions as is and
// typed ones wrapped in a byte string header.
func (stx *SignedTransaction) EncodeRLP(w io.Writer) error {
	if stx.Type() != params.LegacyTxType {
		var b [33]byte
		if err := rlp.EncodeStringSizePrefix(stx.EncodingSize(), w, b[:]); err != nil {
			return err
		}
	}
	return stx.MarshalBinary(w)
}

// Bytes returns the canonical encoding.
func (stx *SignedTransaction) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(stx.EncodingSize())
	if err := stx.MarshalBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeSignedList reads list(payload fields, signature fields) for a transaction of the given type.
func decodeSignedList(txType byte, s *gethrlp.Stream) (*SignedTransaction, error) {
	tx, err := newTxData(txType)
	if err != nil {
		return nil, err
	}
	if _, err = s.List(); err != nil {
		return nil, fmt.Errorf("open transaction: %w", err)
	}
	if err = tx.decodeFields(s); err != nil {
		return nil, err
	}
	var sig Signature
	if legacy, ok := tx.(*LegacyTx); ok {
		if legacy.ChainID, err = sig.decodeLegacy(s); err != nil {
			return nil, err
		}
	} else if err = sig.decode(s); err != nil {
		return nil, err
	}
	if err = s.ListEnd(); err != nil {
		return nil, fmt.Errorf("close transaction: %w", err)
	}
	return NewSignedTransaction(tx, sig)
}

func newStream(data []byte) *gethrlp.Stream {
	return gethrlp.NewStream(bytes.NewReader(data), uint64(len(data)))
}

// checkSingleValue rejects data that is not exactly one RLP value.
func checkSingleValue(data []byte) error {
	_, _, rest, err := gethrlp.Split(data)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, len(rest))
	}
	return nil
}

// DecodeSignedTransaction decodes the canonical encoding of a transaction of any type.
func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	if len(data) == 0 {
		return nil, decodeErr(io.ErrUnexpectedEOF)
	}
	txType := params.LegacyTxType
	if data[0] < 0x80 {
		if data[0] == params.LegacyTxType {
			return nil, decodeErr(fmt.Errorf("%w: %d", ErrUnknownTxType, data[0]))
		}
		txType, data = data[0], data[1:]
	} else if data[0] < 0xc0 {
		return nil, decodeErr(fmt.Errorf("%w: canonical encoding starts with a byte string", ErrUnknownTxType))
	}
	if err := checkSingleValue(data); err != nil {
		return nil, decodeErr(err)
	}
	stx, err := decodeSignedList(txType, newStream(data))
	if err != nil {
		return nil, decodeErr(err)
	}
	return stx, nil
}

// DecodePooledTransaction decodes a single entry of a PooledTransactions response. The entry may
// be wrapped in a byte string header. Blob transactions must carry their sidecar and decode to
// *BlobTxWrapper; every other type decodes to *SignedTransaction.
func DecodePooledTransaction(data []byte) (PooledTransaction, error) {
	if len(data) == 0 {
		return nil, decodeErr(io.ErrUnexpectedEOF)
	}
	if data[0] >= 0x80 && data[0] < 0xc0 {
		if err := checkSingleValue(data); err != nil {
			return nil, decodeErr(err)
		}
		content, _, err := gethrlp.SplitString(data)
		if err != nil {
			return nil, decodeErr(err)
		}
		if len(content) == 0 || content[0] >= 0x80 {
			return nil, decodeErr(fmt.Errorf("%w: wrapped transaction is not typed", ErrUnknownTxType))
		}
		data = content
	}
	if data[0] == params.BlobTxType {
		wrapper, err := DecodeBlobTxWrapper(data)
		if err != nil {
			return nil, err
		}
		return wrapper, nil
	}
	stx, err := DecodeSignedTransaction(data)
	if err != nil {
		return nil, err
	}
	return stx, nil
}
