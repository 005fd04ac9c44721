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
)

var (
	ErrDecode             = errors.New("rlp decode")
	ErrTrailingBytes      = errors.New("trailing bytes after transaction")
	ErrValueTooLarge      = errors.New("value exceeds 128 bits")
	ErrUnknownTxType      = errors.New("unknown transaction type")
	ErrNotBlobTransaction = errors.New("not a blob transaction")
	ErrBlobLengthMismatch = errors.New("blob versioned hashes and commitments count mismatch")
	ErrKZG                = errors.New("kzg")
	ErrInvalidSig         = errors.New("invalid transaction v, r, s values")
	ErrInvalidChainId     = errors.New("invalid chain id for signer")
)

// NotBlobTransactionError is returned when a pooled blob envelope carries a payload of another type.
type NotBlobTransactionError struct {
	Type byte
}

func (e *NotBlobTransactionError) Error() string {
	return fmt.Sprintf("%s: got tx type %d", ErrNotBlobTransaction, e.Type)
}

func (e *NotBlobTransactionError) Unwrap() error { return ErrNotBlobTransaction }

// BlobLengthMismatchError carries the observed counts of declared versioned hashes and sidecar commitments.
type BlobLengthMismatchError struct {
	Hashes      int
	Commitments int
}

func (e *BlobLengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %d versioned hashes, %d commitments", ErrBlobLengthMismatch, e.Hashes, e.Commitments)
}

func (e *BlobLengthMismatchError) Unwrap() error { return ErrBlobLengthMismatch }

// KZGError reports a failure of the commitment library itself, as opposed to invalid data.
type KZGError struct {
	Err error
}

func (e *KZGError) Error() string { return fmt.Sprintf("%s: %v", ErrKZG, e.Err) }

func (e *KZGError) Unwrap() []error { return []error{ErrKZG, e.Err} }

func decodeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}
