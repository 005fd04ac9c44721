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

package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type Histogram interface {
	prometheus.Histogram
	UpdateDuration(start time.Time)
	SampleCount() uint64
}

type histogram struct {
	prometheus.Histogram
}

// UpdateDuration observes the seconds elapsed since start.
func (h *histogram) UpdateDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h *histogram) SampleCount() uint64 {
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		panic(fmt.Errorf("calling SampleCount with invalid metric: %w", err))
	}
	return m.GetHistogram().GetSampleCount()
}

// HistTimer measures one span of work into a histogram named after it.
type HistTimer struct {
	Histogram

	start time.Time

	name string
}

func NewHistTimer(name string) *HistTimer {
	return &HistTimer{
		Histogram: GetOrCreateHistogram(name),
		start:     time.Now(),
		name:      name,
	}
}

func (h *HistTimer) PutSince() {
	h.Histogram.UpdateDuration(h.start)
}

func (h *HistTimer) Child(suffix string) *HistTimer {
	suffix = strings.TrimPrefix(suffix, "_")
	return NewHistTimer(h.name + "_" + suffix)
}
