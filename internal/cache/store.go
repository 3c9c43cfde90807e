// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package cache holds the in-memory snapshot store the read API serves
// from. One entry per configured source; the refresh engine replaces
// whole entries atomically, so readers always observe a consistent
// snapshot of one refresh pass and never a half-updated mix of two.
package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/homeshelf/internal/metrics"
	"github.com/tomtom215/homeshelf/internal/models"
)

// Freshness describes the lifecycle state of a cache entry.
type Freshness string

const (
	// Unprimed: no successful refresh yet. Reads are refused with 503.
	Unprimed Freshness = "unprimed"
	// Fresh: the latest refresh attempt succeeded.
	Fresh Freshness = "fresh"
	// Stale: data exists but at least one refresh has failed since it
	// was published. Reads serve the old snapshot flagged as stale.
	Stale Freshness = "stale"
)

// Entry is one source's cached snapshot. Groups preserve the order the
// upstream lists libraries in. Readers must treat Groups as read-only;
// the renderer never mutates cached items.
type Entry struct {
	SourceID    string
	Groups      []models.LibraryGroup
	Fingerprint models.Fingerprint
	Freshness   Freshness
	RefreshedAt time.Time
	LastError   string
	AuthFailed  bool
}

// Store maps source IDs to their cache entries. The key set is fixed
// at construction from the configured sources; asking for any other ID
// is a caller bug and returns ok=false.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewStore builds a store with one unprimed entry per source ID.
func NewStore(sourceIDs []string) *Store {
	entries := make(map[string]*Entry, len(sourceIDs))
	for _, id := range sourceIDs {
		entries[id] = &Entry{
			SourceID:  id,
			Freshness: Unprimed,
		}
		metrics.SetCacheFreshness(id, string(Unprimed))
	}
	return &Store{entries: entries}
}

// Publish atomically replaces a source's snapshot with the result of a
// successful refresh. The caller hands over ownership of groups and
// must not touch the slice afterwards.
func (s *Store) Publish(sourceID string, groups []models.LibraryGroup, fp models.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sourceID]
	if !ok {
		return
	}
	entry.Groups = groups
	entry.Fingerprint = fp
	entry.Freshness = Fresh
	entry.RefreshedAt = time.Now()
	entry.LastError = ""

	itemCount := 0
	for _, g := range groups {
		itemCount += len(g.Items)
	}
	metrics.SetCacheFreshness(sourceID, string(Fresh))
	metrics.CacheItems.WithLabelValues(sourceID).Set(float64(itemCount))
	metrics.CacheLastRefresh.WithLabelValues(sourceID).Set(float64(entry.RefreshedAt.Unix()))
}

// RecordError marks a failed refresh. A primed entry keeps its data
// and turns stale; an unprimed entry stays unprimed. authFailed
// latches: once set it survives later transient errors so the API can
// report why the source stopped updating.
func (s *Store) RecordError(sourceID string, errMsg string, authFailed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sourceID]
	if !ok {
		return
	}
	entry.LastError = errMsg
	if authFailed {
		entry.AuthFailed = true
	}
	if entry.Freshness == Fresh {
		entry.Freshness = Stale
	}
	metrics.SetCacheFreshness(sourceID, string(entry.Freshness))
}

// Read returns a copy of a source's entry. The Groups slice header is
// copied; the shared backing data is never mutated after Publish.
func (s *Store) Read(sourceID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[sourceID]
	if !ok {
		return Entry{}, false
	}
	out := *entry
	out.Groups = make([]models.LibraryGroup, len(entry.Groups))
	copy(out.Groups, entry.Groups)
	return out, true
}

// Fingerprint returns the published fingerprint for a source, empty if
// none has been published yet.
func (s *Store) Fingerprint(sourceID string) models.Fingerprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[sourceID]; ok {
		return entry.Fingerprint
	}
	return ""
}

// SourceIDs lists the configured source IDs the store was built with.
func (s *Store) SourceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Primed reports whether every source has published at least once.
// Used by the readiness probe.
func (s *Store) Primed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.Freshness == Unprimed && !entry.AuthFailed {
			return false
		}
	}
	return true
}
