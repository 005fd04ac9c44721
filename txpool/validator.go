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
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/errgroup"

	"github.com/erigontech/blobtx/core/types"
	"github.com/erigontech/blobtx/crypto/kzg"
	"github.com/erigontech/blobtx/metrics"
)

var (
	knownBlobTxHits     = metrics.GetOrCreateCounter(`txpool_blob_known_hits`)
	blobValidationTimer = metrics.GetOrCreateHistogram(`txpool_blob_validation_seconds`)
)

func discardCounter(r DiscardReason) metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`txpool_blob_validations{result=%q}`, r.metricName()))
}

// BlobValidator checks pooled blob transactions against their sidecars. Hashes that passed once
// are remembered, so a transaction re-announced by several peers is verified only once.
type BlobValidator struct {
	cfg    Config
	setup  *kzg.TrustedSetup
	known  *lru.Cache[common.Hash, struct{}]
	logger log.Logger
}

func NewBlobValidator(cfg Config, setup *kzg.TrustedSetup, logger log.Logger) (*BlobValidator, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	known, err := lru.New[common.Hash, struct{}](cfg.KnownCacheSize)
	if err != nil {
		return nil, err
	}
	return &BlobValidator{cfg: cfg, setup: setup, known: known, logger: logger}, nil
}

// Validate returns the admission outcome for txn. An error means the check could not be
// carried out at all, for instance because the trusted setup is missing.
func (v *BlobValidator) Validate(txn types.PooledTransaction) (DiscardReason, error) {
	reason, err := v.validate(txn)
	if err != nil {
		v.logger.Warn("[txpool] blob validation failed", "hash", txn.Hash(), "err", err)
		return NotSet, err
	}
	discardCounter(reason).Inc()
	if reason != Success {
		v.logger.Debug("[txpool] discarding blob transaction", "hash", txn.Hash(), "reason", reason)
	}
	return reason, nil
}

func (v *BlobValidator) validate(txn types.PooledTransaction) (DiscardReason, error) {
	wrapper, ok := txn.(*types.BlobTxWrapper)
	if !ok {
		return NotBlobTxType, nil
	}
	blobTx, ok := wrapper.BlobTx()
	if !ok {
		return NotBlobTxType, nil
	}
	if v.known.Contains(wrapper.Hash()) {
		knownBlobTxHits.Inc()
		return Success, nil
	}

	hashes := blobTx.BlobVersionedHashes
	if len(hashes) == 0 {
		return NoBlobs, nil
	}
	if uint64(len(hashes)) > v.cfg.MaxBlobsPerTx {
		return TooManyBlobs, nil
	}
	sidecar := &wrapper.Sidecar
	if len(hashes) != len(sidecar.Blobs) || len(sidecar.Blobs) != len(sidecar.Commitments) || len(sidecar.Commitments) != len(sidecar.Proofs) {
		return UnequalBlobTxExt, nil
	}
	for i, h := range sidecar.BlobHashes() {
		if h != hashes[i] {
			return BlobHashCheckFail, nil
		}
	}

	start := time.Now()
	valid, err := wrapper.Validate(v.setup)
	blobValidationTimer.UpdateDuration(start)
	if err != nil {
		if errors.Is(err, types.ErrBlobLengthMismatch) {
			return UnequalBlobTxExt, nil
		}
		return NotSet, err
	}
	if !valid {
		return UnmatchedBlobTxExt, nil
	}
	v.known.Add(wrapper.Hash(), struct{}{})
	return Success, nil
}

// ValidateBatch validates txns with at most cfg.ValidationWorkers checks in flight. reasons[i]
// belongs to txns[i]. The first error cancels the remaining checks and is returned.
func (v *BlobValidator) ValidateBatch(ctx context.Context, txns []types.PooledTransaction) ([]DiscardReason, error) {
	timer := metrics.NewHistTimer("txpool_blob_validate_batch_seconds")
	defer timer.PutSince()

	reasons := make([]DiscardReason, len(txns))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(v.cfg.ValidationWorkers)
	for i, txn := range txns {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reason, err := v.Validate(txn)
			if err != nil {
				return fmt.Errorf("txn %d (%x): %w", i, txn.Hash(), err)
			}
			reasons[i] = reason
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reasons, nil
}
