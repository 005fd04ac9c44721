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

package kzg

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/holiman/uint256"
	jsoniter "github.com/json-iterator/go"

	"github.com/erigontech/blobtx/params"
)

const (
	BlobCommitmentVersionKZG uint8 = 0x01
	PrecompileInputLength    int   = 192
)

type (
	Blob       = goethkzg.Blob
	Commitment = goethkzg.KZGCommitment
	Proof      = goethkzg.KZGProof
)

type VersionedHash [32]byte

var (
	ErrTrustedSetupNotLoaded = errors.New("kzg trusted setup not loaded")
	ErrBatchLengthMismatch   = errors.New("kzg batch length mismatch")

	errInvalidInputLength = errors.New("invalid input length")

	// The value that gets returned when the `verify_kzg_proof“ precompile is called
	precompileReturnValue [64]byte

	trustedSetupFile string

	defaultSetup    *TrustedSetup
	defaultSetupErr error
	initDefault     sync.Once
)

func init() {
	uint256.NewInt(params.FieldElementsPerBlob).WriteToSlice(precompileReturnValue[:32])
	uint256.MustFromHex("0x73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001").WriteToSlice(precompileReturnValue[32:])
}

// TrustedSetup holds the precomputed ceremony points needed to commit to blobs and to
// verify blob proofs. A nil *TrustedSetup means no setup was loaded.
type TrustedSetup struct {
	ctx *goethkzg.Context
}

// SetTrustedSetupFilePath makes DefaultTrustedSetup read the setup from a JSON file instead of
// the embedded mainnet ceremony. It only has an effect before the first DefaultTrustedSetup call.
func SetTrustedSetupFilePath(path string) {
	trustedSetupFile = path
}

// DefaultTrustedSetup lazily initialises the process wide setup. This is expensive on the first
// call, so services should call it once at startup.
func DefaultTrustedSetup() (*TrustedSetup, error) {
	initDefault.Do(func() {
		if trustedSetupFile != "" {
			defaultSetup, defaultSetupErr = LoadTrustedSetup(trustedSetupFile)
			return
		}
		ctx, err := goethkzg.NewContext4096Secure()
		if err != nil {
			defaultSetupErr = fmt.Errorf("could not create KZG context: %w", err)
			return
		}
		defaultSetup = &TrustedSetup{ctx: ctx}
	})
	return defaultSetup, defaultSetupErr
}

// LoadTrustedSetup reads a trusted setup in the consensus-specs JSON format.
func LoadTrustedSetup(path string) (*TrustedSetup, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read trusted setup file: %w", err)
	}
	return ParseTrustedSetup(file)
}

func ParseTrustedSetup(data []byte) (*TrustedSetup, error) {
	setup := new(goethkzg.JSONTrustedSetup)
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, setup); err != nil {
		return nil, fmt.Errorf("could not unmarshal trusted setup: %w", err)
	}
	ctx, err := goethkzg.NewContext4096(setup)
	if err != nil {
		return nil, fmt.Errorf("could not create KZG context: %w", err)
	}
	return &TrustedSetup{ctx: ctx}, nil
}

// BlobToCommitment computes the KZG commitment of a blob.
func (ts *TrustedSetup) BlobToCommitment(blob *Blob) (Commitment, error) {
	if ts == nil {
		return Commitment{}, ErrTrustedSetupNotLoaded
	}
	return ts.ctx.BlobToKZGCommitment(blob, 0)
}

// ComputeBlobProof computes the proof that commitment opens blob.
func (ts *TrustedSetup) ComputeBlobProof(blob *Blob, commitment Commitment) (Proof, error) {
	if ts == nil {
		return Proof{}, ErrTrustedSetupNotLoaded
	}
	return ts.ctx.ComputeBlobKZGProof(blob, commitment, 0)
}

// VerifyBlobKZGProofBatch checks every (blob, commitment, proof) triple in one batched pairing
// check. Any failure reported by the verifier, including a malformed point or a blob element out
// of field range, is treated as an invalid batch and returns (false, nil). Errors are only
// returned when the call itself cannot be made.
func (ts *TrustedSetup) VerifyBlobKZGProofBatch(blobs []*Blob, commitments []Commitment, proofs []Proof) (bool, error) {
	if ts == nil {
		return false, ErrTrustedSetupNotLoaded
	}
	if len(blobs) != len(commitments) || len(blobs) != len(proofs) {
		return false, fmt.Errorf("%w: %d blobs, %d commitments, %d proofs", ErrBatchLengthMismatch, len(blobs), len(commitments), len(proofs))
	}
	if len(blobs) == 0 {
		return true, nil
	}
	if err := ts.ctx.VerifyBlobKZGProofBatch(blobs, commitments, proofs); err != nil {
		return false, nil
	}
	return true, nil
}

// KZGToVersionedHash implements kzg_to_versioned_hash from EIP-4844
func KZGToVersionedHash(kzg Commitment) VersionedHash {
	h := sha256.Sum256(kzg[:])
	h[0] = BlobCommitmentVersionKZG

	return VersionedHash(h)
}

// PointEvaluationPrecompile implements point_evaluation_precompile from EIP-4844
func (ts *TrustedSetup) PointEvaluationPrecompile(input []byte) ([]byte, error) {
	if ts == nil {
		return nil, ErrTrustedSetupNotLoaded
	}
	if len(input) != PrecompileInputLength {
		return nil, errInvalidInputLength
	}
	// versioned hash: first 32 bytes
	var versionedHash VersionedHash
	copy(versionedHash[:], input[:32])

	var x, y goethkzg.Scalar
	// Evaluation point: next 32 bytes
	copy(x[:], input[32:64])
	// Expected output: next 32 bytes
	copy(y[:], input[64:96])

	// input kzg point: next 48 bytes
	var dataKZG Commitment
	copy(dataKZG[:], input[96:144])
	if KZGToVersionedHash(dataKZG) != versionedHash {
		return nil, errors.New("mismatched versioned hash")
	}

	// Quotient kzg: next 48 bytes
	var quotientKZG Proof
	copy(quotientKZG[:], input[144:PrecompileInputLength])

	if err := ts.ctx.VerifyKZGProof(dataKZG, x, y, quotientKZG); err != nil {
		return nil, fmt.Errorf("verify_kzg_proof error: %w", err)
	}

	result := precompileReturnValue // copy the value

	return result[:], nil
}
