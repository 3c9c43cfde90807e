// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package aggregate

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/homeshelf/internal/mapping"
	"github.com/tomtom215/homeshelf/internal/models"
)

func TestFormatRelativeBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		age  int64
		want string
	}{
		{0, "0 seconds ago"},
		{1, "1 second ago"},
		{59, "59 seconds ago"},
		{60, "1 minute ago"},
		{3599, "59 minutes ago"},
		{3600, "1 hour ago"},
		{86399, "23 hours ago"},
		{86400, "1 day ago"},
		{2591999, "29 days ago"},
		{2592000, "1 month ago"},
		{31535999, "12 months ago"},
		{31536000, "1 year ago"},
	}
	for _, tt := range tests {
		got := FormatRelative(now.Unix()-tt.age, now)
		if got != tt.want {
			t.Errorf("FormatRelative(age=%ds) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestFormatRelativeOneHourIsSingular(t *testing.T) {
	got := FormatRelative(1_700_000_000, time.Unix(1_700_003_600, 0))
	if got != "1 hour ago" {
		t.Errorf("FormatRelative(one hour ago) = %q, want %q", got, "1 hour ago")
	}
}

func TestFormatRelativeFutureClampsToZero(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := FormatRelative(now.Unix()+500, now); got != "0 seconds ago" {
		t.Errorf("future timestamp = %q", got)
	}
}

func TestFormatShort(t *testing.T) {
	// 2023-01-15 UTC; local zone may shift the day, so render through
	// the same API the server uses.
	ts := int64(1673778600)
	want := time.Unix(ts, 0).Format("Jan 02")
	if got := FormatShort(ts); got != want {
		t.Errorf("FormatShort() = %q, want %q", got, want)
	}
	if len(want) != 6 || !strings.Contains(want, " ") {
		t.Errorf("unexpected short date shape: %q", want)
	}
}

func TestParseDateFormat(t *testing.T) {
	if ParseDateFormat("short") != DateShort || ParseDateFormat("relative") != DateRelative {
		t.Error("valid formats not recognized")
	}
	if ParseDateFormat("") != DateNone || ParseDateFormat("iso") != DateNone {
		t.Error("invalid formats should map to DateNone")
	}
}

func snapshotGroups() []models.LibraryGroup {
	return []models.LibraryGroup{
		{
			Name:   "Movies",
			Counts: models.Counts{{Label: "Movies", Count: 2}},
			Items: []models.Item{
				{ID: "1", MediaType: "movie", Year: 1995, AddedAt: 1000,
					Fields: map[string]string{"title": "Heat"}},
				{ID: "2", MediaType: "movie", Year: 2024, AddedAt: 900,
					Fields: map[string]string{"title": "Dune Part Two"}},
			},
		},
		{
			Name:   "Shows",
			Counts: models.Counts{{Label: "Shows", Count: 1}, {Label: "Episodes", Count: 10}},
			Items: []models.Item{
				{ID: "3", MediaType: "episode", AddedAt: 800, Fields: map[string]string{
					"grandparent_title": "Severance", "parent_media_index": "2",
					"media_index": "4", "title": "Woe's Hollow",
				}},
			},
		},
	}
}

func TestRenderItemsAppliesRulesAndCount(t *testing.T) {
	rules := mapping.DefaultRules()
	out := RenderItems(rules, "tautulli", snapshotGroups(), 1, DateNone, time.Now())

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if len(out[0].Items) != 1 {
		t.Errorf("count limit not applied: %d items", len(out[0].Items))
	}
	if out[0].Items[0].Title != "Heat" {
		t.Errorf("movie title = %q", out[0].Items[0].Title)
	}
	if out[1].Items[0].Title != "Severance - S2E4 - Woe's Hollow" {
		t.Errorf("episode title = %q", out[1].Items[0].Title)
	}
	if out[0].Items[0].Date != "" {
		t.Errorf("Date = %q with DateNone", out[0].Items[0].Date)
	}
}

func TestRenderItemsRelativeDates(t *testing.T) {
	rules := mapping.DefaultRules()
	now := time.Unix(1000+3600, 0)
	out := RenderItems(rules, "tautulli", snapshotGroups(), 0, DateRelative, now)

	if got := out[0].Items[0].Date; got != "1 hours ago" {
		t.Errorf("Date = %q, want \"1 hours ago\"", got)
	}
	// added_at stays numeric alongside the formatted date
	if out[0].Items[0].AddedAt != 1000 {
		t.Errorf("AddedAt = %d, want 1000", out[0].Items[0].AddedAt)
	}
}

func TestRenderedLibrariesPreservesOrder(t *testing.T) {
	rules := mapping.DefaultRules()
	out := RenderItems(rules, "tautulli", snapshotGroups(), 0, DateNone, time.Now())

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.HasPrefix(s, `{"Movies":`) {
		t.Errorf("Movies not first in %s", s)
	}
	if strings.Index(s, `"Movies"`) > strings.Index(s, `"Shows"`) {
		t.Errorf("library order lost: %s", s)
	}
}

func TestRenderCountsShape(t *testing.T) {
	out := RenderCounts(snapshotGroups())
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Movies":{"counts":{"Movies":2}},"Shows":{"counts":{"Shows":1,"Episodes":10}}}`
	if string(data) != want {
		t.Errorf("counts JSON = %s, want %s", data, want)
	}
}

func TestRenderSessions(t *testing.T) {
	now := time.Unix(2000, 0)
	sessions := []models.Session{
		{SourceID: "tautulli", User: "alice", State: models.SessionPlaying,
			Position: "00:10:00", Runtime: "01:30:00", Progress: 11.1,
			Fields: map[string]string{"full_title": "Heat"}},
		{SourceID: "jellystat", User: "bob", State: models.SessionPaused,
			Fields: map[string]string{"SeriesName": "Dark", "Name": "Sic Mundus"}},
		{SourceID: "tautulli", User: "carol", State: models.SessionLastPlayed,
			LastActivity: 2000 - 120, Fields: map[string]string{"full_title": "Alien"}},
	}

	rows := RenderSessions(sessions, DateRelative, now)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0].Status != "Playing" || rows[0].StatusDot != models.SessionPlaying.StatusDot() {
		t.Errorf("playing row = %+v", rows[0])
	}
	if rows[1].Title != "Dark - Sic Mundus" {
		t.Errorf("series title = %q", rows[1].Title)
	}
	if rows[2].Status != "Last Played" || rows[2].LastPlayed != "2 minutes ago" {
		t.Errorf("last played row = %+v", rows[2])
	}
}

func TestRenderSessionsFallbacks(t *testing.T) {
	rows := RenderSessions([]models.Session{
		{State: models.SessionPlaying, Fields: map[string]string{}},
	}, DateNone, time.Now())
	if rows[0].Title != mapping.UnknownTitle {
		t.Errorf("Title = %q, want %q", rows[0].Title, mapping.UnknownTitle)
	}
	if rows[0].User != "Unknown User" {
		t.Errorf("User = %q, want Unknown User", rows[0].User)
	}
}
