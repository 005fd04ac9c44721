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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Set is a group of metrics registered under one prometheus registry.
type Set struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
}

var defaultSet = NewSet()

// NewSet creates an empty Set backed by its own registry.
func NewSet() *Set {
	return &Set{
		registry: prometheus.NewRegistry(),
		metrics:  make(map[string]prometheus.Collector),
	}
}

// Registry returns the set's registry. It can be handed to promhttp.
func (s *Set) Registry() *prometheus.Registry { return s.registry }

// DefaultRegistry returns the registry behind the package-level helpers.
func DefaultRegistry() *prometheus.Registry { return defaultSet.registry }

func (s *Set) GetOrCreateCounter(name string) (prometheus.Counter, error) {
	c, err := s.getOrCreate(name, func(opts prometheus.Opts) prometheus.Collector {
		return prometheus.NewCounter(prometheus.CounterOpts(opts))
	})
	if err != nil {
		return nil, err
	}
	counter, ok := c.(prometheus.Counter)
	if !ok {
		return nil, fmt.Errorf("metric %q is not a counter", name)
	}
	return counter, nil
}

func (s *Set) GetOrCreateHistogram(name string) (prometheus.Histogram, error) {
	h, err := s.getOrCreate(name, func(opts prometheus.Opts) prometheus.Collector {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        opts.Name,
			Help:        opts.Help,
			ConstLabels: opts.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 12),
		})
	})
	if err != nil {
		return nil, err
	}
	histogram, ok := h.(prometheus.Histogram)
	if !ok {
		return nil, fmt.Errorf("metric %q is not a histogram", name)
	}
	return histogram, nil
}

func (s *Set) getOrCreate(name string, create func(prometheus.Opts) prometheus.Collector) (prometheus.Collector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.metrics[name]; ok {
		return c, nil
	}
	opts, err := parseMetric(name)
	if err != nil {
		return nil, err
	}
	c := create(opts)
	if err := s.registry.Register(c); err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}
	s.metrics[name] = c
	return c, nil
}

// parseMetric splits `foo{bar="baz",aaa="b"}` into a name and const labels.
func parseMetric(s string) (prometheus.Opts, error) {
	name, labels, ok := strings.Cut(s, "{")
	if name == "" {
		return prometheus.Opts{}, fmt.Errorf("metric %q has no name", s)
	}
	opts := prometheus.Opts{Name: name, Help: name}
	if !ok {
		return opts, nil
	}
	if !strings.HasSuffix(labels, "}") {
		return prometheus.Opts{}, fmt.Errorf("metric %q: missing closing brace", s)
	}
	labels = strings.TrimSuffix(labels, "}")
	if labels == "" {
		return opts, nil
	}
	opts.ConstLabels = prometheus.Labels{}
	for _, kv := range strings.Split(labels, ",") {
		k, v, found := strings.Cut(kv, "=")
		if !found || len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
			return prometheus.Opts{}, fmt.Errorf("metric %q: malformed label %q", s, kv)
		}
		opts.ConstLabels[strings.TrimSpace(k)] = v[1 : len(v)-1]
	}
	return opts, nil
}
