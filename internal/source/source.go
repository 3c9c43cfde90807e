// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package source contains the upstream media-server adapters.
//
// Each adapter translates one upstream API (Tautulli, Jellystat,
// Audiobookshelf) into the shared models. Adapters are stateless apart
// from their HTTP client and are safe for concurrent use; resilience
// (circuit breaking) is layered on top via BreakerAdapter rather than
// built into each adapter.
package source

import (
	"context"
	"errors"

	"github.com/tomtom215/homeshelf/internal/models"
)

// ErrNotSupported is returned by Activity for sources that have no
// session/activity concept. Callers treat it as an empty result, not a
// failure.
var ErrNotSupported = errors.New("operation not supported by this source")

// Adapter is the contract every upstream integration implements.
//
// All methods accept a context for cancellation and timeout. Errors
// are classified into the package's taxonomy (ErrUnreachable, ErrAuth,
// ErrProtocol) so the refresh engine can decide between retrying and
// giving up.
type Adapter interface {
	// ID returns the stable source identifier used in cache keys and
	// API paths ("tautulli", "jellystat", "audiobookshelf").
	ID() string

	// Name returns the human-readable display name.
	Name() string

	// Libraries lists the source's libraries with their media counts.
	// This is the cheap call the change detector polls.
	Libraries(ctx context.Context) ([]models.Library, error)

	// RecentlyAdded fetches the newest items of one library, newest
	// first, at most limit entries. Items the upstream returns in a
	// malformed shape are skipped, not fatal.
	RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error)

	// Activity returns the current playback sessions, or last-played
	// rows for idle users where the upstream supports it. Returns
	// ErrNotSupported when the source has no activity concept.
	Activity(ctx context.Context) ([]models.Session, error)
}
