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

package params

// Transaction type identifiers (EIP-2718).
const (
	LegacyTxType     byte = 0x00
	AccessListTxType byte = 0x01
	DynamicFeeTxType byte = 0x02
	BlobTxType       byte = 0x03
)

// EIP-4844 sizes and blob gas parameters (Cancun).
const (
	FieldElementsPerBlob = 4096
	BytesPerFieldElement = 32
	BlobSize             = FieldElementsPerBlob * BytesPerFieldElement // 131072

	KZGCommitmentSize = 48 // compressed BLS12-381 G1 point
	KZGProofSize      = 48

	BlobGasPerBlob             uint64 = 1 << 17 // DATA_GAS_PER_BLOB
	TargetBlobGasPerBlock      uint64 = 3 * BlobGasPerBlob
	MaxBlobGasPerBlock         uint64 = 6 * BlobGasPerBlob
	MaxBlobsPerBlock           uint64 = MaxBlobGasPerBlock / BlobGasPerBlob
	MinBlobGasPrice            uint64 = 1
	BlobGasPriceUpdateFraction uint64 = 3338477
)
