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
	"golang.org/x/sync/errgroup"

	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/params"
	"github.com/erigontech/blobtx/rlp"
)

type KZGCommitment [params.KZGCommitmentSize]byte // Compressed BLS12-381 G1 element
type KZGProof [params.KZGProofSize]byte
type Blob [params.BlobSize]byte

type BlobKzgs []KZGCommitment
type KZGProofs []KZGProof
type Blobs []Blob

// ComputeVersionedHash derives the versioned hash a transaction body uses to reference this commitment.
func (c KZGCommitment) ComputeVersionedHash() common.Hash {
	return common.Hash(kzg.KZGToVersionedHash(kzg.Commitment(c)))
}

/* Blobs methods */

func (blobs Blobs) payloadSize() int {
	return len(blobs) * (rlp.StringPrefixLen(params.BlobSize) + params.BlobSize)
}

func (blobs Blobs) encodePayload(w io.Writer, b []byte) error {
	// prefix
	if err := rlp.EncodeStructSizePrefix(blobs.payloadSize(), w, b); err != nil {
		return err
	}
	for i := range blobs {
		if err := rlp.EncodeBytes(blobs[i][:], w, b); err != nil {
			return err
		}
	}
	return nil
}

func (blobs *Blobs) decode(s *gethrlp.Stream) error {
	if _, err := s.List(); err != nil {
		return fmt.Errorf("open Blobs: %w", err)
	}
	for {
		*blobs = append(*blobs, Blob{})
		if err := s.ReadBytes((*blobs)[len(*blobs)-1][:]); err != nil {
			*blobs = (*blobs)[:len(*blobs)-1]
			if errors.Is(err, gethrlp.EOL) {
				break
			}
			return fmt.Errorf("read Blob %d: %w", len(*blobs), err)
		}
	}
	if len(*blobs) == 0 {
		*blobs = nil
	}
	if err := s.ListEnd(); err != nil {
		return fmt.Errorf("close Blobs: %w", err)
	}
	return nil
}

func (blobs Blobs) kzgBlobs() []*kzg.Blob {
	out := make([]*kzg.Blob, len(blobs))
	for i := range blobs {
		out[i] = (*kzg.Blob)(&blobs[i])
	}
	return out
}

/* BlobKzgs methods */

func (li BlobKzgs) payloadSize() int {
	return (1 + params.KZGCommitmentSize) * len(li)
}

func (li BlobKzgs) encodePayload(w io.Writer, b []byte) error {
	// prefix
	if err := rlp.EncodeStructSizePrefix(li.payloadSize(), w, b); err != nil {
		return err
	}
	for _, cmtmt := range li {
		if err := rlp.EncodeBytes(cmtmt[:], w, b); err != nil {
			return err
		}
	}
	return nil
}

func (li *BlobKzgs) decode(s *gethrlp.Stream) error {
	if _, err := s.List(); err != nil {
		return fmt.Errorf("open BlobKzgs (Commitments): %w", err)
	}
	var err error
	for {
		var cmtmt KZGCommitment
		if err = s.ReadBytes(cmtmt[:]); err != nil {
			break
		}
		*li = append(*li, cmtmt)
	}
	if !errors.Is(err, gethrlp.EOL) {
		return fmt.Errorf("read BlobKzgs (Commitments): %w", err)
	}
	if err = s.ListEnd(); err != nil {
		return fmt.Errorf("close BlobKzgs (Commitments): %w", err)
	}
	return nil
}

func (li BlobKzgs) kzgCommitments() []kzg.Commitment {
	out := make([]kzg.Commitment, len(li))
	for i, c := range li {
		out[i] = kzg.Commitment(c)
	}
	return out
}

/* KZGProofs methods */

func (li KZGProofs) payloadSize() int {
	return (1 + params.KZGProofSize) * len(li)
}

func (li KZGProofs) encodePayload(w io.Writer, b []byte) error {
	// prefix
	if err := rlp.EncodeStructSizePrefix(li.payloadSize(), w, b); err != nil {
		return err
	}
	for _, proof := range li {
		if err := rlp.EncodeBytes(proof[:], w, b); err != nil {
			return err
		}
	}
	return nil
}

func (li *KZGProofs) decode(s *gethrlp.Stream) error {
	if _, err := s.List(); err != nil {
		return fmt.Errorf("open KZGProofs (Proofs): %w", err)
	}
	var err error
	for {
		var proof KZGProof
		if err = s.ReadBytes(proof[:]); err != nil {
			break
		}
		*li = append(*li, proof)
	}
	if !errors.Is(err, gethrlp.EOL) {
		return fmt.Errorf("read KZGProofs (Proofs): %w", err)
	}
	if err = s.ListEnd(); err != nil {
		return fmt.Errorf("close KZGProofs (Proofs): %w", err)
	}
	return nil
}

func (li KZGProofs) kzgProofs() []kzg.Proof {
	out := make([]kzg.Proof, len(li))
	for i, p := range li {
		out[i] = kzg.Proof(p)
	}
	return out
}

// BlobTxSidecar carries the blobs of a transaction together with their commitments and proofs.
// The three lists are not required to have equal length here; Validate checks that.
type BlobTxSidecar struct {
	Blobs       Blobs
	Commitments BlobKzgs
	Proofs      KZGProofs
}

// NewBlobTxSidecar computes the commitment and proof of every blob.
func NewBlobTxSidecar(setup *kzg.TrustedSetup, blobs Blobs) (*BlobTxSidecar, error) {
	sc := &BlobTxSidecar{
		Blobs:       blobs,
		Commitments: make(BlobKzgs, len(blobs)),
		Proofs:      make(KZGProofs, len(blobs)),
	}
	var g errgroup.Group
	for i := range blobs {
		g.Go(func() error {
			blob := (*kzg.Blob)(&blobs[i])
			commitment, err := setup.BlobToCommitment(blob)
			if err != nil {
				return fmt.Errorf("could not convert blob %d to commitment: %w", i, err)
			}
			proof, err := setup.ComputeBlobProof(blob, commitment)
			if err != nil {
				return fmt.Errorf("could not compute proof for blob %d: %w", i, err)
			}
			sc.Commitments[i] = KZGCommitment(commitment)
			sc.Proofs[i] = KZGProof(proof)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sc, nil
}

// BlobHashes returns the versioned hashes of all commitments, in order.
func (sc *BlobTxSidecar) BlobHashes() []common.Hash {
	hashes := make([]common.Hash, len(sc.Commitments))
	for i, c := range sc.Commitments {
		hashes[i] = c.ComputeVersionedHash()
	}
	return hashes
}

// FieldsLength is the encoded length of the three lists, without any enclosing list prefix.
func (sc *BlobTxSidecar) FieldsLength() int {
	blobsLen := sc.Blobs.payloadSize()
	commitmentsLen := sc.Commitments.payloadSize()
	proofsLen := sc.Proofs.payloadSize()
	return rlp.ListPrefixLen(blobsLen) + blobsLen +
		rlp.ListPrefixLen(commitmentsLen) + commitmentsLen +
		rlp.ListPrefixLen(proofsLen) + proofsLen
}

// EncodeFields writes blobs, commitments and proofs as three sibling lists.
func (sc *BlobTxSidecar) EncodeFields(w io.Writer, b []byte) error {
	if err := sc.Blobs.encodePayload(w, b); err != nil {
		return err
	}
	if err := sc.Commitments.encodePayload(w, b); err != nil {
		return err
	}
	return sc.Proofs.encodePayload(w, b)
}

// DecodeFields reads the three sibling lists written by EncodeFields.
func (sc *BlobTxSidecar) DecodeFields(s *gethrlp.Stream) error {
	if err := sc.Blobs.decode(s); err != nil {
		return err
	}
	if err := sc.Commitments.decode(s); err != nil {
		return err
	}
	return sc.Proofs.decode(s)
}

// Size is the in-memory size of the blob data.
func (sc *BlobTxSidecar) Size() int {
	return len(sc.Blobs)*params.BlobSize +
		len(sc.Commitments)*params.KZGCommitmentSize +
		len(sc.Proofs)*params.KZGProofSize
}
