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

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/blobtx/consensus/misc"
	"github.com/erigontech/blobtx/core/types"
	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/params"
)

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func testSetup(t *testing.T) *kzg.TrustedSetup {
	t.Helper()
	setup, err := kzg.DefaultTrustedSetup()
	require.NoError(t, err)
	return setup
}

func testLogger() log.Logger {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return logger
}

func canonicalBlob(rnd *rand.Rand) types.Blob {
	var blob types.Blob
	for i := 0; i < len(blob); i += params.BytesPerFieldElement {
		rnd.Read(blob[i+1 : i+params.BytesPerFieldElement])
	}
	return blob
}

func sign(t *testing.T, tx types.TxData) *types.SignedTransaction {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	stx, err := types.LatestSigner(1).SignTx(tx, key)
	require.NoError(t, err)
	return stx
}

func randAddress(rnd *rand.Rand) *common.Address {
	var a common.Address
	rnd.Read(a[:])
	return &a
}

func testLegacyTx(t *testing.T, rnd *rand.Rand) *types.SignedTransaction {
	chainID := uint64(1)
	return sign(t, &types.LegacyTx{
		Nonce:    rnd.Uint64(),
		GasPrice: *uint256.NewInt(rnd.Uint64()),
		Gas:      21000,
		To:       randAddress(rnd),
		Value:    *uint256.NewInt(1),
		Data:     []byte{},
		ChainID:  &chainID,
	})
}

func testDynamicFeeTx(t *testing.T, rnd *rand.Rand) *types.SignedTransaction {
	return sign(t, &types.DynamicFeeTx{
		ChainID: 1,
		Nonce:   rnd.Uint64(),
		TipCap:  *uint256.NewInt(2),
		FeeCap:  *uint256.NewInt(100),
		Gas:     50000,
		To:      randAddress(rnd),
		Data:    []byte{0x01, 0x02},
	})
}

func testBlobTxWrapper(t *testing.T, rnd *rand.Rand, setup *kzg.TrustedSetup, numBlobs int) *types.BlobTxWrapper {
	return testBlobTxWrapperWith(t, rnd, setup, numBlobs, nil)
}

// testBlobTxWrapperWith builds a signed envelope with genuine commitments and proofs; mutate runs
// before signing.
func testBlobTxWrapperWith(t *testing.T, rnd *rand.Rand, setup *kzg.TrustedSetup, numBlobs int, mutate func(*types.BlobTx, *types.BlobTxSidecar)) *types.BlobTxWrapper {
	t.Helper()
	var blobs types.Blobs
	for i := 0; i < numBlobs; i++ {
		blobs = append(blobs, canonicalBlob(rnd))
	}
	sidecar, err := types.NewBlobTxSidecar(setup, blobs)
	require.NoError(t, err)
	tx := &types.BlobTx{
		DynamicFeeTx: types.DynamicFeeTx{
			ChainID: 1,
			Nonce:   rnd.Uint64(),
			TipCap:  *uint256.NewInt(2),
			FeeCap:  *uint256.NewInt(100),
			Gas:     50000,
			To:      randAddress(rnd),
		},
		MaxFeePerBlobGas:    *uint256.NewInt(10),
		BlobVersionedHashes: sidecar.BlobHashes(),
	}
	if mutate != nil {
		mutate(tx, sidecar)
	}
	return types.NewBlobTxWrapper(sign(t, tx), *sidecar)
}

func TestValidatorOutcomes(t *testing.T) {
	setup := testSetup(t)
	rnd := newTestRand(2)

	cfg := DefaultConfig
	cfg.MaxBlobsPerTx = 2
	v, err := NewBlobValidator(cfg, setup, testLogger())
	require.NoError(t, err)

	tests := []struct {
		name   string
		txn    types.PooledTransaction
		reason DiscardReason
	}{
		{"legacy", testLegacyTx(t, rnd), NotBlobTxType},
		{"dynamic fee", testDynamicFeeTx(t, rnd), NotBlobTxType},
		{"genuine", testBlobTxWrapper(t, rnd, setup, 2), Success},
		{"no blobs", testBlobTxWrapper(t, rnd, setup, 0), NoBlobs},
		{"too many blobs", testBlobTxWrapper(t, rnd, setup, 3), TooManyBlobs},
		{"proof missing", testBlobTxWrapperWith(t, rnd, setup, 2, func(_ *types.BlobTx, sc *types.BlobTxSidecar) {
			sc.Proofs = sc.Proofs[:1]
		}), UnequalBlobTxExt},
		{"extra hash", testBlobTxWrapperWith(t, rnd, setup, 1, func(tx *types.BlobTx, _ *types.BlobTxSidecar) {
			tx.BlobVersionedHashes = append(tx.BlobVersionedHashes, common.Hash{0x01})
		}), UnequalBlobTxExt},
		{"wrong hash", testBlobTxWrapperWith(t, rnd, setup, 2, func(tx *types.BlobTx, _ *types.BlobTxSidecar) {
			tx.BlobVersionedHashes[1][5] ^= 0xff
		}), BlobHashCheckFail},
		{"corrupt blob", testBlobTxWrapperWith(t, rnd, setup, 2, func(_ *types.BlobTx, sc *types.BlobTxSidecar) {
			sc.Blobs[0][31] ^= 0x01
		}), UnmatchedBlobTxExt},
		{"swapped proofs", testBlobTxWrapperWith(t, rnd, setup, 2, func(_ *types.BlobTx, sc *types.BlobTxSidecar) {
			sc.Proofs[0], sc.Proofs[1] = sc.Proofs[1], sc.Proofs[0]
		}), UnmatchedBlobTxExt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := discardCounter(tt.reason).GetValueUint64()
			reason, err := v.Validate(tt.txn)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, reason, reason.String())
			assert.Equal(t, before+1, discardCounter(tt.reason).GetValueUint64())
		})
	}
}

func TestValidatorKnownCache(t *testing.T) {
	setup := testSetup(t)
	rnd := newTestRand(3)
	v, err := NewBlobValidator(DefaultConfig, setup, testLogger())
	require.NoError(t, err)

	txw := testBlobTxWrapper(t, rnd, setup, 1)
	reason, err := v.Validate(txw)
	require.NoError(t, err)
	require.Equal(t, Success, reason)

	// a cached hash needs no proof verification
	v.setup = nil
	hits := knownBlobTxHits.GetValueUint64()
	reason, err = v.Validate(txw)
	require.NoError(t, err)
	assert.Equal(t, Success, reason)
	assert.Equal(t, hits+1, knownBlobTxHits.GetValueUint64())

	_, err = v.Validate(testBlobTxWrapper(t, rnd, setup, 1))
	require.ErrorIs(t, err, kzg.ErrTrustedSetupNotLoaded)
	require.ErrorIs(t, err, types.ErrKZG)
}

func TestValidateBatch(t *testing.T) {
	setup := testSetup(t)
	rnd := newTestRand(4)

	cfg := DefaultConfig
	cfg.ValidationWorkers = 2
	v, err := NewBlobValidator(cfg, setup, testLogger())
	require.NoError(t, err)

	txns := []types.PooledTransaction{
		testBlobTxWrapper(t, rnd, setup, 1),
		testDynamicFeeTx(t, rnd),
		testBlobTxWrapperWith(t, rnd, setup, 1, func(_ *types.BlobTx, sc *types.BlobTxSidecar) {
			sc.Blobs[0][100] ^= 0x01
		}),
		testBlobTxWrapper(t, rnd, setup, 0),
		testBlobTxWrapper(t, rnd, setup, 2),
	}
	reasons, err := v.ValidateBatch(context.Background(), txns)
	require.NoError(t, err)
	assert.Equal(t, []DiscardReason{Success, NotBlobTxType, UnmatchedBlobTxExt, NoBlobs, Success}, reasons)

	t.Run("empty", func(t *testing.T) {
		reasons, err := v.ValidateBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, reasons)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := v.ValidateBatch(ctx, txns)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no setup", func(t *testing.T) {
		noSetup, err := NewBlobValidator(cfg, nil, testLogger())
		require.NoError(t, err)
		_, err = noSetup.ValidateBatch(context.Background(), []types.PooledTransaction{testBlobTxWrapper(t, rnd, setup, 1)})
		require.ErrorIs(t, err, kzg.ErrTrustedSetupNotLoaded)
	})
}

func TestDiscardReasonString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "blob proofs do not verify", UnmatchedBlobTxExt.String())
	assert.Equal(t, "unknown discard reason: 200", DiscardReason(200).String())
}

func TestConfig(t *testing.T) {
	require.NoError(t, DefaultConfig.Check())

	path := filepath.Join(t.TempDir(), "txpool.toml")
	require.NoError(t, os.WriteFile(path, []byte("validation_workers = 3\nknown_cache_size = 16\n"), 0o600))
	cfg := DefaultConfig
	require.NoError(t, ReadConfigFile(path, &cfg))
	assert.Equal(t, 3, cfg.ValidationWorkers)
	assert.Equal(t, 16, cfg.KnownCacheSize)
	assert.Equal(t, DefaultConfig.MaxBlobsPerTx, cfg.MaxBlobsPerTx)

	require.NoError(t, os.WriteFile(path, []byte("validation_workers = 0\n"), 0o600))
	cfg = DefaultConfig
	require.Error(t, ReadConfigFile(path, &cfg))

	require.NoError(t, os.WriteFile(path, []byte("validation_workers = \"x\"\n"), 0o600))
	require.Error(t, ReadConfigFile(path, &cfg))

	require.Error(t, ReadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), &cfg))

	_, err := NewBlobValidator(Config{}, nil, testLogger())
	require.Error(t, err)

	cfg = DefaultConfig
	cfg.MaxBlobsPerTx = params.MaxBlobsPerBlock + 1
	require.ErrorIs(t, cfg.Check(), misc.ErrTooManyBlobs)
}
