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

	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

// BlobTxWrapper is a signed blob transaction together with its sidecar, the form in which blob
// transactions travel between pools. Its hash is the hash of the signed transaction alone.
type BlobTxWrapper struct {
	Tx      *SignedTransaction
	Sidecar BlobTxSidecar
}

func NewBlobTxWrapper(tx *SignedTransaction, sidecar BlobTxSidecar) *BlobTxWrapper {
	return &BlobTxWrapper{Tx: tx, Sidecar: sidecar}
}

func (txw *BlobTxWrapper) pooled() {}

func (txw *BlobTxWrapper) Hash() common.Hash { return txw.Tx.Hash() }
func (txw *BlobTxWrapper) Type() byte        { return params.BlobTxType }

// BlobTx returns the blob body, or false if the signed payload is of another type.
func (txw *BlobTxWrapper) BlobTx() (*BlobTx, bool) {
	tx, ok := txw.Tx.Payload().(*BlobTx)
	return tx, ok
}

// Size approximates the memory held by the envelope.
func (txw *BlobTxWrapper) Size() int {
	size := txw.Sidecar.Size()
	if tx, ok := txw.BlobTx(); ok {
		size += tx.Size()
	}
	return size
}

func (txw *BlobTxWrapper) payloadSize() (outerLen, innerLen int) {
	innerLen = txw.Tx.FieldsLength()
	outerLen = rlp.ListPrefixLen(innerLen) + innerLen + txw.Sidecar.FieldsLength()
	return outerLen, innerLen
}

// PayloadLen is the length of rlp([[body, signature], blobs, commitments, proofs]), list prefix included.
func (txw *BlobTxWrapper) PayloadLen() int {
	outerLen, _ := txw.payloadSize()
	return rlp.ListPrefixLen(outerLen) + outerLen
}

// PayloadLenWithType is the number of bytes EncodeWithType writes for the same withHeader.
func (txw *BlobTxWrapper) PayloadLenWithType(withHeader bool) int {
	envelopeSize := 1 + txw.PayloadLen()
	if withHeader {
		return rlp.StringPrefixLen(envelopeSize) + envelopeSize
	}
	return envelopeSize
}

// EncodingSize is the length of the pooled encoding without the byte string header.
func (txw *BlobTxWrapper) EncodingSize() int {
	return txw.PayloadLenWithType(false)
}

// EncodeWithType writes 0x03 || rlp([[body, signature], blobs, commitments, proofs]), preceded by
// a byte string header over all of it when withHeader is set.
func (txw *BlobTxWrapper) EncodeWithType(w io.Writer, withHeader bool) error {
	outerLen, innerLen := txw.payloadSize()
	var b [33]byte
	if withHeader {
		// envelope
		envelopeSize := 1 + rlp.ListPrefixLen(outerLen) + outerLen
		if err := rlp.EncodeStringSizePrefix(envelopeSize, w, b[:]); err != nil {
			return err
		}
	}
	// encode TxType
	b[0] = params.BlobTxType
	if _, err := w.Write(b[:1]); err != nil {
		return err
	}
	if err := rlp.EncodeStructSizePrefix(outerLen, w, b[:]); err != nil {
		return err
	}
	if err := rlp.EncodeStructSizePrefix(innerLen, w, b[:]); err != nil {
		return err
	}
	if err := txw.Tx.EncodeFields(w, b[:]); err != nil {
		return err
	}
	return txw.Sidecar.EncodeFields(w, b[:])
}

// MarshalBinary writes the pooled form without the byte string header.
func (txw *BlobTxWrapper) MarshalBinary(w io.Writer) error {
	return txw.EncodeWithType(w, false)
}

// EncodeRLP writes the pooled form wrapped in a byte string header, as it appears inside
// a PooledTransactions list.
func (txw *BlobTxWrapper) EncodeRLP(w io.Writer) error {
	return txw.EncodeWithType(w, true)
}

// Bytes returns the pooled form without the byte string header.
func (txw *BlobTxWrapper) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(txw.EncodingSize())
	if err := txw.MarshalBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBlobTxWrapperInner decodes rlp([[body, signature], blobs, commitments, proofs]). The type
// byte has already been consumed. The transaction hash is recomputed from the signed body.
func DecodeBlobTxWrapperInner(s *gethrlp.Stream) (*BlobTxWrapper, error) {
	if _, err := s.List(); err != nil {
		return nil, decodeErr(fmt.Errorf("open BlobTxWrapper: %w", err))
	}
	stx, err := decodeSignedList(params.BlobTxType, s)
	if err != nil {
		return nil, decodeErr(err)
	}
	txw := &BlobTxWrapper{Tx: stx}
	if err = txw.Sidecar.DecodeFields(s); err != nil {
		return nil, decodeErr(err)
	}
	if err = s.ListEnd(); err != nil {
		return nil, decodeErr(fmt.Errorf("close BlobTxWrapper: %w", err))
	}
	return txw, nil
}

// DecodeBlobTxWrapper decodes 0x03 || rlp([[body, signature], blobs, commitments, proofs]).
func DecodeBlobTxWrapper(data []byte) (*BlobTxWrapper, error) {
	if len(data) == 0 {
		return nil, decodeErr(io.ErrUnexpectedEOF)
	}
	if data[0] != params.BlobTxType {
		return nil, decodeErr(&NotBlobTransactionError{Type: data[0]})
	}
	if err := checkSingleValue(data[1:]); err != nil {
		return nil, decodeErr(err)
	}
	return DecodeBlobTxWrapperInner(newStream(data[1:]))
}

// Validate checks the sidecar against the transaction: every declared versioned hash must be
// derived from the commitment at the same position and the blob proofs must verify as a batch.
// Invalid data yields (false, nil); errors mean the check could not be carried out.
func (txw *BlobTxWrapper) Validate(setup *kzg.TrustedSetup) (bool, error) {
	blobTx, ok := txw.BlobTx()
	if !ok {
		return false, &NotBlobTransactionError{Type: txw.Tx.Type()}
	}
	if len(blobTx.BlobVersionedHashes) != len(txw.Sidecar.Commitments) {
		return false, &BlobLengthMismatchError{Hashes: len(blobTx.BlobVersionedHashes), Commitments: len(txw.Sidecar.Commitments)}
	}
	for i, h := range blobTx.BlobVersionedHashes {
		if txw.Sidecar.Commitments[i].ComputeVersionedHash() != h {
			return false, nil
		}
	}
	valid, err := setup.VerifyBlobKZGProofBatch(txw.Sidecar.Blobs.kzgBlobs(), txw.Sidecar.Commitments.kzgCommitments(), txw.Sidecar.Proofs.kzgProofs())
	if err != nil {
		return false, &KZGError{Err: err}
	}
	return valid, nil
}
