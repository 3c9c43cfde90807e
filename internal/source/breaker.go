// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/metrics"
	"github.com/tomtom215/homeshelf/internal/models"
)

// BreakerAdapter wraps an Adapter with the circuit breaker pattern so
// a flapping upstream cannot soak the refresh engine in timeouts.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via
// sony/gobreaker) for its interval and timeout calculations. Tests
// should mock the wrapped adapter, not the breaker.
type BreakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker[interface{}]
	name  string
}

// NewBreakerAdapter wraps adapter with a circuit breaker.
// Configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
//
// Auth failures never count toward tripping the breaker: they are
// persistent, the scheduler stops polling the source anyway, and an
// open breaker would only mask the real error.
func NewBreakerAdapter(inner Adapter) *BreakerAdapter {
	cbName := inner.ID() + "-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", cbName).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// ErrNotSupported is a capability answer, not a failure.
			return errors.Is(err, ErrNotSupported) || errors.Is(err, ErrAuth)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerAdapter{
		inner: inner,
		cb:    cb,
		name:  cbName,
	}
}

func (b *BreakerAdapter) ID() string   { return b.inner.ID() }
func (b *BreakerAdapter) Name() string { return b.inner.Name() }

// MaxConcurrentFetches forwards the concurrency cap of the wrapped
// adapter, if it declares one.
func (b *BreakerAdapter) MaxConcurrentFetches() int {
	if limited, ok := b.inner.(interface{ MaxConcurrentFetches() int }); ok {
		return limited.MaxConcurrentFetches()
	}
	return 0
}

// execute wraps one upstream call with circuit breaker protection and
// records the outcome in metrics.
func (b *BreakerAdapter) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, ErrNotSupported) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Str("breaker", b.name).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			// An open breaker means the upstream was unreachable; keep
			// the taxonomy intact for the refresh engine.
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Libraries implements Adapter with circuit breaker protection.
func (b *BreakerAdapter) Libraries(ctx context.Context) ([]models.Library, error) {
	return castResult[[]models.Library](b.execute(func() (interface{}, error) {
		return b.inner.Libraries(ctx)
	}))
}

// RecentlyAdded implements Adapter with circuit breaker protection.
func (b *BreakerAdapter) RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error) {
	return castResult[[]models.Item](b.execute(func() (interface{}, error) {
		return b.inner.RecentlyAdded(ctx, lib, limit)
	}))
}

// Activity implements Adapter with circuit breaker protection.
func (b *BreakerAdapter) Activity(ctx context.Context) ([]models.Session, error) {
	return castResult[[]models.Session](b.execute(func() (interface{}, error) {
		return b.inner.Activity(ctx)
	}))
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
