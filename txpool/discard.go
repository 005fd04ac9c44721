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

package txpool

import "fmt"

// DiscardReason explains why a pooled transaction was not admitted.
type DiscardReason uint8

const (
	NotSet             DiscardReason = 0 // analog of "nil-value", means it will be set in future
	Success            DiscardReason = 1
	NotBlobTxType      DiscardReason = 2  // Only blob transactions travel with sidecars
	NoBlobs            DiscardReason = 25 // Blob transactions must have at least one blob
	TooManyBlobs       DiscardReason = 26 // There's a limit on how many blobs a block (and thus any transaction) may have
	UnequalBlobTxExt   DiscardReason = 27 // blob_versioned_hashes, blobs, commitments and proofs must have equal number
	BlobHashCheckFail  DiscardReason = 28 // KZGcommitment's versioned hash has to be equal to blob_versioned_hash at the same index
	UnmatchedBlobTxExt DiscardReason = 29 // KZGcommitments must match the corresponding blobs and proofs
)

func (r DiscardReason) String() string {
	switch r {
	case NotSet:
		return "not set"
	case Success:
		return "success"
	case NotBlobTxType:
		return "not a blob transaction"
	case NoBlobs:
		return "blob transaction has no blobs"
	case TooManyBlobs:
		return "blob transaction has too many blobs"
	case UnequalBlobTxExt:
		return "blob transaction extension lengths differ"
	case BlobHashCheckFail:
		return "versioned hash does not match commitment"
	case UnmatchedBlobTxExt:
		return "blob proofs do not verify"
	default:
		return fmt.Sprintf("unknown discard reason: %d", r)
	}
}

// metricName is the label value used for outcome counters.
func (r DiscardReason) metricName() string {
	switch r {
	case Success:
		return "success"
	case NotBlobTxType:
		return "not_blob_tx"
	case NoBlobs:
		return "no_blobs"
	case TooManyBlobs:
		return "too_many_blobs"
	case UnequalBlobTxExt:
		return "unequal_ext"
	case BlobHashCheckFail:
		return "hash_check_fail"
	case UnmatchedBlobTxExt:
		return "unmatched_ext"
	default:
		return "unknown"
	}
}
