// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/homeshelf/internal/cache"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/metrics"
	"github.com/tomtom215/homeshelf/internal/models"
	"github.com/tomtom215/homeshelf/internal/source"
)

// ErrRefreshInFlight is returned when a refresh is requested while one
// is already running for the same source. The caller treats it as a
// no-op, not a failure.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// defaultFetchWorkers bounds concurrent per-library item fetches for
// sources that tolerate parallel requests.
const defaultFetchWorkers = 10

// Refresher performs a full cache refresh for one source: library
// listing, per-library recently-added items, then one atomic publish.
// At most one refresh per source runs at a time.
type Refresher struct {
	adapter         source.Adapter
	store           *cache.Store
	itemsPerLibrary int
	log             zerolog.Logger

	mu sync.Mutex // in-flight guard, TryLock only
}

// NewRefresher builds a refresher for one source.
func NewRefresher(adapter source.Adapter, store *cache.Store, itemsPerLibrary int) *Refresher {
	return &Refresher{
		adapter:         adapter,
		store:           store,
		itemsPerLibrary: itemsPerLibrary,
		log:             logging.With("refresh").With().Str("source", adapter.ID()).Logger(),
	}
}

// workers returns the fetch concurrency for this source. Adapters that
// declare MaxConcurrentFetches (Jellystat breaks under concurrent
// load) get their cap honored.
func (r *Refresher) workers() int {
	if limited, ok := r.adapter.(interface{ MaxConcurrentFetches() int }); ok {
		if n := limited.MaxConcurrentFetches(); n > 0 {
			return n
		}
	}
	return defaultFetchWorkers
}

// Refresh fetches a complete snapshot and publishes it. Returns
// ErrRefreshInFlight when another refresh for this source is running.
// Any upstream error aborts the whole pass without touching the
// published snapshot.
func (r *Refresher) Refresh(ctx context.Context) error {
	if !r.mu.TryLock() {
		metrics.RefreshTotal.WithLabelValues(r.adapter.ID(), "skipped").Inc()
		r.log.Debug().Msg("Refresh already in flight, skipping")
		return ErrRefreshInFlight
	}
	defer r.mu.Unlock()

	start := time.Now()
	err := r.refresh(ctx)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(r.adapter.ID(), "error").Inc()
		return err
	}
	metrics.RefreshTotal.WithLabelValues(r.adapter.ID(), "success").Inc()
	metrics.RefreshDuration.WithLabelValues(r.adapter.ID()).Observe(time.Since(start).Seconds())
	return nil
}

func (r *Refresher) refresh(ctx context.Context) error {
	libraries, err := r.adapter.Libraries(ctx)
	if err != nil {
		return err
	}

	groups := make([]models.LibraryGroup, len(libraries))
	for i, lib := range libraries {
		groups[i] = models.LibraryGroup{Name: lib.Name, Counts: lib.Counts}
	}

	type fetchResult struct {
		index int
		items []models.Item
		err   error
	}

	jobs := make(chan int)
	results := make(chan fetchResult)
	var wg sync.WaitGroup

	workers := r.workers()
	if workers > len(libraries) && len(libraries) > 0 {
		workers = len(libraries)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items, err := r.adapter.RecentlyAdded(ctx, libraries[i], r.itemsPerLibrary)
				results <- fetchResult{index: i, items: items, err: err}
			}
		}()
	}

	go func() {
		for i := range libraries {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		groups[res.index].Items = res.items
	}
	if firstErr != nil {
		return firstErr
	}

	r.store.Publish(r.adapter.ID(), groups, models.FingerprintOf(libraries))
	r.log.Info().Int("libraries", len(libraries)).Msg("Cache refresh successful")
	return nil
}
