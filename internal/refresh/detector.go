// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package refresh implements the background engine that keeps the
// cache warm: a cheap change-detection probe per poll tick, a full
// refresh only when the upstream actually changed, and per-source
// scheduling with exponential backoff on failure.
package refresh

import (
	"context"

	"github.com/tomtom215/homeshelf/internal/cache"
	"github.com/tomtom215/homeshelf/internal/metrics"
	"github.com/tomtom215/homeshelf/internal/models"
	"github.com/tomtom215/homeshelf/internal/source"
)

// Detector probes one source for changes by fingerprinting its library
// listing and comparing against the last published fingerprint.
type Detector struct {
	adapter source.Adapter
	store   *cache.Store
}

// NewDetector builds a detector for one source.
func NewDetector(adapter source.Adapter, store *cache.Store) *Detector {
	return &Detector{adapter: adapter, store: store}
}

// Changed reports whether the upstream's state differs from the cached
// snapshot. The comparison is equality-only; fingerprints carry no
// ordering.
func (d *Detector) Changed(ctx context.Context) (bool, error) {
	libraries, err := d.adapter.Libraries(ctx)
	if err != nil {
		metrics.DetectTotal.WithLabelValues(d.adapter.ID(), "error").Inc()
		return false, err
	}

	current := models.FingerprintOf(libraries)
	published := d.store.Fingerprint(d.adapter.ID())

	if current.Equal(published) {
		metrics.DetectTotal.WithLabelValues(d.adapter.ID(), "unchanged").Inc()
		return false, nil
	}
	metrics.DetectTotal.WithLabelValues(d.adapter.ID(), "changed").Inc()
	return true, nil
}
