// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/homeshelf/internal/models"
)

// countingAdapter scripts results and counts calls for breaker tests.
type countingAdapter struct {
	calls  atomic.Int64
	libs   []models.Library
	libErr error
	actErr error
}

func (c *countingAdapter) ID() string   { return "counting" }
func (c *countingAdapter) Name() string { return "Counting" }

func (c *countingAdapter) Libraries(ctx context.Context) ([]models.Library, error) {
	c.calls.Add(1)
	return c.libs, c.libErr
}

func (c *countingAdapter) RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error) {
	c.calls.Add(1)
	return nil, nil
}

func (c *countingAdapter) Activity(ctx context.Context) ([]models.Session, error) {
	c.calls.Add(1)
	return nil, c.actErr
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &countingAdapter{libs: []models.Library{{SourceID: "counting", ID: "1", Name: "Movies"}}}
	b := NewBreakerAdapter(inner)

	if b.ID() != "counting" || b.Name() != "Counting" {
		t.Errorf("identity = %s/%s, want forwarded from inner", b.ID(), b.Name())
	}

	libs, err := b.Libraries(context.Background())
	if err != nil {
		t.Fatalf("Libraries: %v", err)
	}
	if len(libs) != 1 || libs[0].Name != "Movies" {
		t.Errorf("libs = %+v, want inner result", libs)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	inner := &countingAdapter{libErr: protocolErr("get_libraries", errors.New("bad payload"))}
	b := NewBreakerAdapter(inner)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := b.Libraries(ctx); !errors.Is(err, ErrProtocol) {
			t.Fatalf("call %d error = %v, want ErrProtocol while closed", i, err)
		}
	}

	// Ten straight failures trip the breaker; further calls are
	// rejected without reaching the upstream.
	before := inner.calls.Load()
	_, err := b.Libraries(ctx)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("post-trip error = %v, want ErrUnreachable", err)
	}
	if got := inner.calls.Load(); got != before {
		t.Errorf("inner calls = %d after trip, want %d (rejected before upstream)", got, before)
	}
}

func TestBreakerIgnoresAuthAndNotSupported(t *testing.T) {
	inner := &countingAdapter{actErr: ErrNotSupported, libErr: ErrAuth}
	b := NewBreakerAdapter(inner)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := b.Activity(ctx); !errors.Is(err, ErrNotSupported) {
			t.Fatalf("Activity error = %v, want ErrNotSupported", err)
		}
		if _, err := b.Libraries(ctx); !errors.Is(err, ErrAuth) {
			t.Fatalf("Libraries error = %v, want ErrAuth", err)
		}
	}

	// Neither error class trips the breaker, so calls keep reaching
	// the inner adapter.
	if got := inner.calls.Load(); got != 40 {
		t.Errorf("inner calls = %d, want 40 (breaker stays closed)", got)
	}
}

func TestBreakerForwardsConcurrencyCap(t *testing.T) {
	plain := NewBreakerAdapter(&countingAdapter{})
	if got := plain.MaxConcurrentFetches(); got != 0 {
		t.Errorf("MaxConcurrentFetches = %d for uncapped inner, want 0", got)
	}

	js := NewBreakerAdapter(&Jellystat{})
	if got := js.MaxConcurrentFetches(); got != 1 {
		t.Errorf("MaxConcurrentFetches = %d for Jellystat, want 1", got)
	}
}
