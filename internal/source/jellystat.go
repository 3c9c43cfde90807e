// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

/*
jellystat.go - Jellystat Source Adapter

Talks to Jellystat's REST API using the x-api-token header. Endpoints:
  - GET /api/getLibraries: library list (Id, Name)
  - GET /stats/getLibraryOverview: per-library counts and type
  - GET /api/getRecentlyAdded?libraryid=: newest items of one library
  - GET /proxy/getSessions: live Jellyfin sessions proxied by Jellystat
  - GET /stats/getAllUserActivity: last-seen rows per user

Jellystat is sensitive to concurrent requests against its
recently-added endpoint; the refresh engine fetches libraries
sequentially for this source (see MaxConcurrentFetches).

Count mapping by collection type:
  - tvshows: Shows = Library_Count, Seasons = Season_Count,
    Episodes = Episode_Count
  - movies:  Movies = Library_Count
  - music:   Tracks = Library_Count (Jellystat counts tracks, not artists)
*/
package source

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/homeshelf/internal/config"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/models"
)

// Jellystat adapts the Jellystat API to the Adapter interface.
type Jellystat struct {
	client *apiClient
}

// NewJellystat builds a Jellystat adapter from its configuration.
func NewJellystat(cfg config.JellystatConfig, timeout time.Duration) *Jellystat {
	headers := map[string]string{"x-api-token": cfg.APIKey}
	return &Jellystat{
		client: newAPIClient(cfg.BaseURL(), headers, timeout),
	}
}

func (j *Jellystat) ID() string   { return "jellystat" }
func (j *Jellystat) Name() string { return "Jellystat" }

// MaxConcurrentFetches caps concurrent RecentlyAdded calls. Jellystat
// returns errors under concurrent load, so fetches are serialized.
func (j *Jellystat) MaxConcurrentFetches() int { return 1 }

type jellystatLibrary struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

type jellystatLibraryStat struct {
	ID             string `json:"Id"`
	CollectionType string `json:"CollectionType"`
	LibraryCount   int    `json:"Library_Count"`
	SeasonCount    int    `json:"Season_Count"`
	EpisodeCount   int    `json:"Episode_Count"`
}

type jellystatItem struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	SeriesName     string `json:"SeriesName"`
	SeasonNumber   int    `json:"SeasonNumber"`
	EpisodeNumber  int    `json:"EpisodeNumber"`
	Type           string `json:"Type"`
	DateCreated    string `json:"DateCreated"` // ISO 8601
	ProductionYear int    `json:"ProductionYear"`
}

type jellystatSession struct {
	UserID         string `json:"UserId"`
	UserName       string `json:"UserName"`
	NowPlayingItem *struct {
		Name         string `json:"Name"`
		SeriesName   string `json:"SeriesName"`
		RunTimeTicks int64  `json:"RunTimeTicks"`
	} `json:"NowPlayingItem"`
	PlayState struct {
		IsPaused      bool  `json:"IsPaused"`
		PositionTicks int64 `json:"PositionTicks"`
	} `json:"PlayState"`
}

type jellystatUserActivity struct {
	UserID           string `json:"UserId"`
	UserName         string `json:"UserName"`
	LastActivityDate string `json:"LastActivityDate"`
	LastWatched      string `json:"LastWatched"`
}

// Libraries implements Adapter. Combines the library listing with the
// overview stats; a library absent from the overview keeps empty
// counts rather than failing the whole listing.
func (j *Jellystat) Libraries(ctx context.Context) ([]models.Library, error) {
	var libs []jellystatLibrary
	if err := j.client.getJSON(ctx, "/api/getLibraries", nil, &libs); err != nil {
		return nil, err
	}

	var stats []jellystatLibraryStat
	if err := j.client.getJSON(ctx, "/stats/getLibraryOverview", nil, &stats); err != nil {
		return nil, err
	}

	statsByID := make(map[string]jellystatLibraryStat, len(stats))
	for _, s := range stats {
		statsByID[s.ID] = s
	}

	libraries := make([]models.Library, 0, len(libs))
	for _, lib := range libs {
		stat := statsByID[lib.ID]
		var counts models.Counts
		mediaType := ""
		switch stat.CollectionType {
		case "tvshows":
			mediaType = "show"
			counts = models.Counts{
				{Label: "Shows", Count: stat.LibraryCount},
				{Label: "Seasons", Count: stat.SeasonCount},
				{Label: "Episodes", Count: stat.EpisodeCount},
			}
		case "movies":
			mediaType = "movie"
			counts = models.Counts{
				{Label: "Movies", Count: stat.LibraryCount},
			}
		case "music":
			mediaType = "artist"
			counts = models.Counts{
				{Label: "Tracks", Count: stat.LibraryCount},
			}
		default:
			counts = models.Counts{
				{Label: "Items", Count: stat.LibraryCount},
			}
		}
		libraries = append(libraries, models.Library{
			SourceID:  j.ID(),
			ID:        lib.ID,
			Name:      lib.Name,
			MediaType: mediaType,
			Counts:    counts,
		})
	}
	return libraries, nil
}

// RecentlyAdded implements Adapter. Jellystat reports added dates as
// ISO 8601 strings; items whose date cannot be parsed are skipped with
// a warning.
func (j *Jellystat) RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error) {
	params := url.Values{}
	params.Set("libraryid", lib.ID)
	params.Set("limit", strconv.Itoa(limit))

	var raw []jellystatItem
	if err := j.client.getJSON(ctx, "/api/getRecentlyAdded", params, &raw); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(raw))
	for _, r := range raw {
		addedAt, err := parseISOTimestamp(r.DateCreated)
		if err != nil || r.ID == "" {
			logging.Warn().
				Str("source", j.ID()).
				Str("library", lib.Name).
				Str("name", r.Name).
				Str("date_created", r.DateCreated).
				Msg("Skipping malformed recently-added item")
			continue
		}
		items = append(items, models.Item{
			LibraryID: lib.ID,
			ID:        r.ID,
			MediaType: r.Type,
			Year:      r.ProductionYear,
			AddedAt:   addedAt,
			Fields: map[string]string{
				"Name":          r.Name,
				"SeriesName":    r.SeriesName,
				"SeasonNumber":  strconv.Itoa(r.SeasonNumber),
				"EpisodeNumber": strconv.Itoa(r.EpisodeNumber),
				"Type":          r.Type,
			},
		})
	}
	return items, nil
}

// Activity implements Adapter. Live sessions come from the Jellyfin
// proxy; users without an active session contribute their last-seen
// row instead.
func (j *Jellystat) Activity(ctx context.Context) ([]models.Session, error) {
	var raw []jellystatSession
	if err := j.client.getJSON(ctx, "/proxy/getSessions", nil, &raw); err != nil {
		return nil, err
	}

	var history []jellystatUserActivity
	if err := j.client.getJSON(ctx, "/stats/getAllUserActivity", nil, &history); err != nil {
		return nil, err
	}

	var sessions []models.Session
	activeUsers := make(map[string]bool)

	for _, s := range raw {
		if s.NowPlayingItem == nil {
			continue
		}
		activeUsers[s.UserID] = true
		state := models.SessionPlaying
		if s.PlayState.IsPaused {
			state = models.SessionPaused
		}
		var progress float64
		if s.NowPlayingItem.RunTimeTicks > 0 {
			progress = float64(s.PlayState.PositionTicks) / float64(s.NowPlayingItem.RunTimeTicks) * 100
		}
		sessions = append(sessions, models.Session{
			SourceID: j.ID(),
			User:     s.UserName,
			State:    state,
			Position: TicksToClock(s.PlayState.PositionTicks),
			Runtime:  TicksToClock(s.NowPlayingItem.RunTimeTicks),
			Progress: progress,
			Fields: map[string]string{
				"Name":       s.NowPlayingItem.Name,
				"SeriesName": s.NowPlayingItem.SeriesName,
			},
		})
	}

	for _, row := range history {
		if activeUsers[row.UserID] {
			continue
		}
		lastSeen, err := parseISOTimestamp(row.LastActivityDate)
		if err != nil {
			lastSeen = 0
		}
		sessions = append(sessions, models.Session{
			SourceID:     j.ID(),
			User:         row.UserName,
			State:        models.SessionLastPlayed,
			LastActivity: lastSeen,
			Fields: map[string]string{
				"Name": row.LastWatched,
			},
		})
	}

	return sessions, nil
}

// parseISOTimestamp parses Jellystat's ISO 8601 dates, with or without
// fractional seconds, into epoch seconds.
func parseISOTimestamp(s string) (int64, error) {
	if s == "" {
		return 0, errEmptyTimestamp
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Fractional seconds without zone, e.g. 2023-01-01T10:00:00.123
		t, err = time.Parse("2006-01-02T15:04:05.999999999", s)
		if err != nil {
			return 0, err
		}
		t = t.UTC()
	}
	return t.Unix(), nil
}
