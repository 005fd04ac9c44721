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
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/erigontech/blobtx/consensus/misc"
	"github.com/erigontech/blobtx/params"
)

type Config struct {
	MaxBlobsPerTx     uint64 `toml:"max_blobs_per_tx"`
	ValidationWorkers int    `toml:"validation_workers"`
	KnownCacheSize    int    `toml:"known_cache_size"`
}

var DefaultConfig = Config{
	MaxBlobsPerTx:     params.MaxBlobsPerBlock,
	ValidationWorkers: runtime.NumCPU(),
	KnownCacheSize:    4096,
}

// ReadConfigFile overlays the TOML file at path onto cfg. Keys missing from the file keep
// their current values.
func ReadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read txpool config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse txpool config %s: %w", path, err)
	}
	return cfg.Check()
}

func (cfg Config) Check() error {
	if cfg.MaxBlobsPerTx == 0 {
		return fmt.Errorf("txpool config: max_blobs_per_tx must be positive")
	}
	if cfg.MaxBlobsPerTx > uint64(math.MaxInt32) {
		return fmt.Errorf("txpool config: max_blobs_per_tx: %w: have %d", misc.ErrTooManyBlobs, cfg.MaxBlobsPerTx)
	}
	if err := misc.VerifyBlobCount(int(cfg.MaxBlobsPerTx)); err != nil {
		return fmt.Errorf("txpool config: max_blobs_per_tx: %w", err)
	}
	if cfg.ValidationWorkers < 1 {
		return fmt.Errorf("txpool config: validation_workers must be positive, got %d", cfg.ValidationWorkers)
	}
	if cfg.KnownCacheSize < 1 {
		return fmt.Errorf("txpool config: known_cache_size must be positive, got %d", cfg.KnownCacheSize)
	}
	return nil
}
