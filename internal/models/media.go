// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package models defines the canonical data model shared by the source
// adapters, the refresh engine, the cache store, and the read API.
//
// Adapters translate upstream-specific JSON (Tautulli, Jellystat,
// Audiobookshelf) into these types; everything downstream of an adapter
// is upstream-agnostic.
package models

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Library is one media library on an upstream server.
// Identity is (SourceID, ID); upstream library IDs are only unique
// within their source.
type Library struct {
	SourceID  string `json:"source_id"`
	ID        string `json:"section_id"`
	Name      string `json:"section_name"`
	MediaType string `json:"section_type"` // movie, show, artist, book
	Counts    Counts `json:"counts"`

	// LastAdded is the newest added-at epoch the upstream reports for
	// this library, 0 when the upstream's library endpoint does not
	// carry one. Feeds the change-detection fingerprint.
	LastAdded int64 `json:"-"`
}

// CountPair is one labeled media count (e.g. "Episodes": 4812).
type CountPair struct {
	Label string
	Count int
}

// Counts is an ordered list of labeled media counts for a library.
// Order is preserved from the adapter so the UI renders counts in a
// stable, source-appropriate order (Shows before Seasons before
// Episodes, and so on).
type Counts []CountPair

// Get returns the count for a label, or 0 if the label is absent.
func (c Counts) Get(label string) int {
	for _, p := range c {
		if p.Label == label {
			return p.Count
		}
	}
	return 0
}

// Total sums all counts. Used by the change detector as part of the
// fingerprint.
func (c Counts) Total() int {
	total := 0
	for _, p := range c {
		total += p.Count
	}
	return total
}

// MarshalJSON renders Counts as an object in declaration order,
// matching the payload shape the homepage widgets consume:
// {"Shows": 120, "Episodes": 4812}.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(p.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(p.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Item is one recently-added media item. Immutable once fetched; a
// later fetch of the same ID may carry different field values but a
// published snapshot is never mutated in place.
type Item struct {
	LibraryID string `json:"library_id"`
	ID        string `json:"id"`
	MediaType string `json:"media_type"`
	Year      int    `json:"year,omitempty"`
	AddedAt   int64  `json:"added_at"` // epoch seconds

	// Fields holds the raw title fields available for template
	// substitution (title, grandparent_title, authorName, ...).
	// Keys are upstream-native so mapping rules can reference them
	// exactly as the upstream API names them.
	Fields map[string]string `json:"-"`
}

// SessionState classifies an activity row.
type SessionState string

const (
	SessionPlaying    SessionState = "playing"
	SessionPaused     SessionState = "paused"
	SessionLastPlayed SessionState = "last_played"
)

// StatusDot returns the indicator glyph the homepage widget shows next
// to a session row.
func (s SessionState) StatusDot() string {
	switch s {
	case SessionPlaying:
		return "\U0001F7E2" // green
	case SessionPaused:
		return "\U0001F7E1" // yellow
	case SessionLastPlayed:
		return "\U0001F534" // red
	default:
		return "⚪" // white: buffering etc.
	}
}

// Session is one activity row: either a currently playing/paused
// stream or the last-played entry for an idle user. Sessions are
// ephemeral and never cached or fingerprinted; the activity path always
// fetches live.
type Session struct {
	SourceID     string            `json:"source_id"`
	User         string            `json:"user"`
	State        SessionState      `json:"state"`
	Fields       map[string]string `json:"-"`
	Position     string            `json:"position,omitempty"` // HH:MM:SS
	Runtime      string            `json:"runtime,omitempty"`  // HH:MM:SS
	Progress     float64           `json:"progress,omitempty"` // percent
	LastActivity int64             `json:"last_activity,omitempty"`
}

// RenderedItem is an Item after title and date formatting, ready for
// the response payload.
type RenderedItem struct {
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	AddedAt int64  `json:"added_at"`
	Date    string `json:"date,omitempty"` // formatted per dateFormat, empty if none requested
}

// LibraryGroup is one top-level group of the aggregated payload: a
// library's display name, its counts, and its items in upstream order.
type LibraryGroup struct {
	Name   string `json:"name"`
	Counts Counts `json:"counts"`
	Items  []Item `json:"-"`
}
