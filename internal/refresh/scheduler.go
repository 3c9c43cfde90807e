// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/homeshelf/internal/cache"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/source"
)

// Scheduler drives the poll loop for one source. On start it primes
// the cache unconditionally, then probes for changes every interval
// and refreshes only when the upstream changed.
//
// Failure policy:
//   - Transient errors (unreachable, protocol) back off exponentially:
//     interval, 2x, 4x, ... capped at maxBackoff, reset on success.
//   - Auth errors are persistent: the source is marked dead and the
//     loop exits. A restart with fixed credentials brings it back.
type Scheduler struct {
	sourceID       string
	detector       *Detector
	refresher      *Refresher
	store          *cache.Store
	interval       time.Duration
	maxBackoff     time.Duration
	requestTimeout time.Duration
	log            zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler wires a detector and refresher into a poll loop.
// requestTimeout bounds each upstream pass (detection probe or full
// refresh), not individual HTTP requests.
func NewScheduler(adapter source.Adapter, store *cache.Store, interval, maxBackoff, requestTimeout time.Duration, itemsPerLibrary int) *Scheduler {
	return &Scheduler{
		sourceID:       adapter.ID(),
		detector:       NewDetector(adapter, store),
		refresher:      NewRefresher(adapter, store, itemsPerLibrary),
		store:          store,
		interval:       interval,
		maxBackoff:     maxBackoff,
		requestTimeout: requestTimeout,
		log:            logging.With("scheduler").With().Str("source", adapter.ID()).Logger(),
	}
}

// Start launches the poll loop. Idempotent; a running scheduler
// returns an error.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler for %s already running", s.sourceID)
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.wg.Add(1)
	go s.run()
	s.log.Info().Dur("interval", s.interval).Msg("Refresh scheduler started")
	return nil
}

// Stop signals the loop to exit and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Refresh scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Prime unconditionally before entering the detection loop; the
	// cache serves 503 until this succeeds.
	if !s.prime() {
		return
	}

	backoff := s.interval
	wait := s.interval
	for {
		select {
		case <-s.stopChan:
			return
		case <-time.After(wait):
		}

		changed, err := s.probe()
		switch {
		case err == nil && !changed:
			backoff = s.interval
			wait = s.interval
			continue
		case err == nil && changed:
			err = s.refreshOnce()
		}

		if err != nil {
			if errors.Is(err, ErrRefreshInFlight) {
				wait = s.interval
				continue
			}
			if s.recordFailure(err) {
				return
			}
			wait = backoff
			backoff = nextBackoff(backoff, s.maxBackoff)
			continue
		}

		backoff = s.interval
		wait = s.interval
	}
}

// prime retries the initial refresh with backoff until it succeeds,
// the scheduler is stopped, or the source turns out to be auth-dead.
// Returns false when the loop should exit.
func (s *Scheduler) prime() bool {
	backoff := s.interval
	for {
		err := s.refreshOnce()
		if err == nil {
			return true
		}
		if s.recordFailure(err) {
			return false
		}

		select {
		case <-s.stopChan:
			return false
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, s.maxBackoff)
	}
}

func (s *Scheduler) probe() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	return s.detector.Changed(ctx)
}

func (s *Scheduler) refreshOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	return s.refresher.Refresh(ctx)
}

// recordFailure stores the error on the cache entry and reports
// whether the failure is terminal for this scheduler.
func (s *Scheduler) recordFailure(err error) (terminal bool) {
	authFailed := errors.Is(err, source.ErrAuth)
	s.store.RecordError(s.sourceID, err.Error(), authFailed)

	if authFailed {
		s.log.Error().Err(err).Msg("Upstream rejected credentials, polling disabled until restart")
		return true
	}
	s.log.Warn().Err(err).Msg("Refresh pass failed, backing off")
	return false
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
