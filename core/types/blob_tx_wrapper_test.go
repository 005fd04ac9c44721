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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/params"
)

func (tr *TRand) RandCanonicalBlob() Blob {
	var blob Blob
	for i := 0; i < len(blob); i += params.BytesPerFieldElement {
		// leading zero byte keeps every element below the field modulus
		tr.rnd.Read(blob[i+1 : i+params.BytesPerFieldElement])
	}
	return blob
}

func testSetup(t *testing.T) *kzg.TrustedSetup {
	t.Helper()
	setup, err := kzg.DefaultTrustedSetup()
	require.NoError(t, err)
	return setup
}

// validBlobTxWrapper builds a signed envelope whose sidecar carries genuine commitments and proofs.
func validBlobTxWrapper(t *testing.T, tr *TRand, setup *kzg.TrustedSetup, numBlobs int) *BlobTxWrapper {
	t.Helper()
	blobs := make(Blobs, numBlobs)
	for i := range blobs {
		blobs[i] = tr.RandCanonicalBlob()
	}
	sidecar, err := NewBlobTxSidecar(setup, blobs)
	require.NoError(t, err)

	tx := tr.RandBlobTx(0)
	tx.ChainID = 1
	tx.BlobVersionedHashes = sidecar.BlobHashes()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	stx, err := LatestSigner(1).SignTx(tx, key)
	require.NoError(t, err)
	return NewBlobTxWrapper(stx, *sidecar)
}

func withBody(t *testing.T, txw *BlobTxWrapper, mutate func(tx *BlobTx)) *BlobTxWrapper {
	t.Helper()
	tx := txw.Tx.Payload().copy().(*BlobTx)
	mutate(tx)
	stx, err := NewSignedTransaction(tx, txw.Tx.Signature())
	require.NoError(t, err)
	return NewBlobTxWrapper(stx, txw.Sidecar)
}

func TestValidate(t *testing.T) {
	tr := NewTRand()
	setup := testSetup(t)
	txw := validBlobTxWrapper(t, tr, setup, 2)

	t.Run("genuine", func(t *testing.T) {
		ok, err := txw.Validate(setup)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("survives the wire", func(t *testing.T) {
		enc, err := txw.Bytes()
		require.NoError(t, err)
		decoded, err := DecodeBlobTxWrapper(enc)
		require.NoError(t, err)
		ok, err := decoded.Validate(setup)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("flipped blob byte", func(t *testing.T) {
		for _, pos := range []int{31, 1000, params.BlobSize - 1} {
			mutated := NewBlobTxWrapper(txw.Tx, BlobTxSidecar{
				Blobs:       append(Blobs{}, txw.Sidecar.Blobs...),
				Commitments: txw.Sidecar.Commitments,
				Proofs:      txw.Sidecar.Proofs,
			})
			mutated.Sidecar.Blobs[1][pos] ^= 0x01
			ok, err := mutated.Validate(setup)
			require.NoError(t, err, "pos %d", pos)
			require.False(t, ok, "pos %d", pos)
		}
	})

	t.Run("mutated versioned hash", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			mutated := withBody(t, txw, func(tx *BlobTx) {
				tx.BlobVersionedHashes[i][31] ^= 0xff
			})
			ok, err := mutated.Validate(setup)
			require.NoError(t, err)
			require.False(t, ok)
		}
		// a wrong version byte is a mismatch too
		mutated := withBody(t, txw, func(tx *BlobTx) {
			tx.BlobVersionedHashes[0][0] = 0x02
		})
		ok, err := mutated.Validate(setup)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("hash mismatch is reported before kzg is consulted", func(t *testing.T) {
		mutated := withBody(t, txw, func(tx *BlobTx) {
			tx.BlobVersionedHashes[0] = common.Hash{}
		})
		ok, err := mutated.Validate(nil)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("one commitment short", func(t *testing.T) {
		mutated := NewBlobTxWrapper(txw.Tx, BlobTxSidecar{
			Blobs:       txw.Sidecar.Blobs,
			Commitments: txw.Sidecar.Commitments[:1],
			Proofs:      txw.Sidecar.Proofs,
		})
		_, err := mutated.Validate(setup)
		require.ErrorIs(t, err, ErrBlobLengthMismatch)
		var lenErr *BlobLengthMismatchError
		require.ErrorAs(t, err, &lenErr)
		require.Equal(t, 2, lenErr.Hashes)
		require.Equal(t, 1, lenErr.Commitments)
	})

	t.Run("one proof short", func(t *testing.T) {
		mutated := NewBlobTxWrapper(txw.Tx, BlobTxSidecar{
			Blobs:       txw.Sidecar.Blobs,
			Commitments: txw.Sidecar.Commitments,
			Proofs:      txw.Sidecar.Proofs[:1],
		})
		_, err := mutated.Validate(setup)
		require.ErrorIs(t, err, ErrKZG)
		require.ErrorIs(t, err, kzg.ErrBatchLengthMismatch)
	})

	t.Run("no trusted setup", func(t *testing.T) {
		_, err := txw.Validate(nil)
		require.ErrorIs(t, err, ErrKZG)
		require.ErrorIs(t, err, kzg.ErrTrustedSetupNotLoaded)
		var kzgErr *KZGError
		require.ErrorAs(t, err, &kzgErr)
	})

	t.Run("wrong variant", func(t *testing.T) {
		dyn := tr.RandDynamicFeeTx()
		mutated := NewBlobTxWrapper(tr.RandSignedTransaction(&dyn), txw.Sidecar)
		ok, err := mutated.Validate(setup)
		require.False(t, ok)
		require.ErrorIs(t, err, ErrNotBlobTransaction)
		var typeErr *NotBlobTransactionError
		require.ErrorAs(t, err, &typeErr)
		require.Equal(t, params.DynamicFeeTxType, typeErr.Type)
	})

	t.Run("no blobs", func(t *testing.T) {
		empty := NewBlobTxWrapper(tr.RandSignedTransaction(tr.RandBlobTx(0)), BlobTxSidecar{})
		ok, err := empty.Validate(setup)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestBlobHashesMatchKZG(t *testing.T) {
	var c KZGCommitment
	c[0] = 0xc0
	h := c.ComputeVersionedHash()
	require.Equal(t, kzg.BlobCommitmentVersionKZG, h[0])
	require.Equal(t, common.Hash(kzg.KZGToVersionedHash(kzg.Commitment(c))), h)

	sc := BlobTxSidecar{Commitments: BlobKzgs{c, {}}}
	hashes := sc.BlobHashes()
	require.Len(t, hashes, 2)
	require.Equal(t, h, hashes[0])
}

func TestNewBlobTxSidecarWithoutSetup(t *testing.T) {
	_, err := NewBlobTxSidecar(nil, make(Blobs, 1))
	require.ErrorIs(t, err, kzg.ErrTrustedSetupNotLoaded)
}
