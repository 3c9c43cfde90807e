// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

/*
tautulli.go - Tautulli Source Adapter

Talks to Tautulli's /api/v2 endpoint. Every call is a GET with apikey
and cmd query parameters and a {"response": {"result", "message",
"data"}} envelope.

Commands used:
  - get_libraries: library list with per-type counts
  - get_recently_added: newest items of one section
  - get_activity: current playback sessions
  - get_history: recent history, used to derive last-played rows for
    idle users

Count mapping by section type:
  - movie:  Movies = count
  - show:   Shows = count, Seasons = parent_count, Episodes = child_count
  - artist: Artists = count, Albums = parent_count
*/
package source

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/homeshelf/internal/config"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/models"
)

// historyLength is how many history rows are scanned for last-played
// entries of idle users.
const historyLength = 250

// Tautulli adapts the Tautulli API to the Adapter interface.
type Tautulli struct {
	client *apiClient
	apiKey string
}

// NewTautulli builds a Tautulli adapter from its configuration.
func NewTautulli(cfg config.TautulliConfig, timeout time.Duration) *Tautulli {
	return &Tautulli{
		client: newAPIClient(cfg.URL, nil, timeout),
		apiKey: cfg.APIKey,
	}
}

func (t *Tautulli) ID() string   { return "tautulli" }
func (t *Tautulli) Name() string { return "Tautulli" }

// envelope types for the /api/v2 response wrapper.

type tautulliLibrariesResponse struct {
	Response struct {
		Result  string                  `json:"result"`
		Message *string                 `json:"message"`
		Data    []tautulliLibraryDetail `json:"data"`
	} `json:"response"`
}

type tautulliLibraryDetail struct {
	SectionID   int    `json:"section_id"`
	SectionName string `json:"section_name"`
	SectionType string `json:"section_type"`
	Count       int    `json:"count"`
	ParentCount int    `json:"parent_count"`
	ChildCount  int    `json:"child_count"`
}

type tautulliRecentlyAddedResponse struct {
	Response struct {
		Result  string  `json:"result"`
		Message *string `json:"message"`
		Data    struct {
			RecentlyAdded []tautulliRecentlyAddedItem `json:"recently_added"`
		} `json:"data"`
	} `json:"response"`
}

type tautulliRecentlyAddedItem struct {
	RatingKey        string `json:"rating_key"`
	Title            string `json:"title"`
	ParentTitle      string `json:"parent_title"`
	GrandparentTitle string `json:"grandparent_title"`
	MediaType        string `json:"media_type"`
	Year             int    `json:"year"`
	AddedAt          int64  `json:"added_at"`
	MediaIndex       int    `json:"media_index"`
	ParentMediaIndex int    `json:"parent_media_index"`
}

type tautulliActivityResponse struct {
	Response struct {
		Result  string  `json:"result"`
		Message *string `json:"message"`
		Data    struct {
			Sessions []tautulliSession `json:"sessions"`
		} `json:"data"`
	} `json:"response"`
}

type tautulliSession struct {
	UserID           int    `json:"user_id"`
	User             string `json:"user"`
	FriendlyName     string `json:"friendly_name"`
	State            string `json:"state"`
	FullTitle        string `json:"full_title"`
	Title            string `json:"title"`
	GrandparentTitle string `json:"grandparent_title"`
	ViewOffset       int64  `json:"view_offset"`
	Duration         int64  `json:"duration"`
	ProgressPercent  string `json:"progress_percent"`
}

type tautulliHistoryResponse struct {
	Response struct {
		Result  string  `json:"result"`
		Message *string `json:"message"`
		Data    struct {
			Data []tautulliHistoryRow `json:"data"`
		} `json:"data"`
	} `json:"response"`
}

type tautulliHistoryRow struct {
	UserID       int    `json:"user_id"`
	User         string `json:"user"`
	FriendlyName string `json:"friendly_name"`
	FullTitle    string `json:"full_title"`
	Stopped      int64  `json:"stopped"`
}

// command performs one /api/v2 request, checking the Tautulli response
// envelope for result != "success".
func (t *Tautulli) command(ctx context.Context, cmd string, params url.Values, result interface{}, getResult func() (string, *string)) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", t.apiKey)
	params.Set("cmd", cmd)

	if err := t.client.getJSON(ctx, "/api/v2", params, result); err != nil {
		return err
	}
	if res, msg := getResult(); res != "success" {
		m := "unknown error"
		if msg != nil {
			m = *msg
		}
		return protocolErr(cmd, fmt.Errorf("result %q: %s", res, m))
	}
	return nil
}

// Libraries implements Adapter.
func (t *Tautulli) Libraries(ctx context.Context) ([]models.Library, error) {
	var resp tautulliLibrariesResponse
	err := t.command(ctx, "get_libraries", nil, &resp, func() (string, *string) {
		return resp.Response.Result, resp.Response.Message
	})
	if err != nil {
		return nil, err
	}

	libraries := make([]models.Library, 0, len(resp.Response.Data))
	for _, lib := range resp.Response.Data {
		var counts models.Counts
		switch lib.SectionType {
		case "show":
			counts = models.Counts{
				{Label: "Shows", Count: lib.Count},
				{Label: "Seasons", Count: lib.ParentCount},
				{Label: "Episodes", Count: lib.ChildCount},
			}
		case "movie":
			counts = models.Counts{
				{Label: "Movies", Count: lib.Count},
			}
		case "artist":
			counts = models.Counts{
				{Label: "Artists", Count: lib.Count},
				{Label: "Albums", Count: lib.ParentCount},
			}
		default:
			counts = models.Counts{
				{Label: "Items", Count: lib.Count},
			}
		}
		libraries = append(libraries, models.Library{
			SourceID:  t.ID(),
			ID:        strconv.Itoa(lib.SectionID),
			Name:      lib.SectionName,
			MediaType: lib.SectionType,
			Counts:    counts,
		})
	}
	return libraries, nil
}

// RecentlyAdded implements Adapter.
func (t *Tautulli) RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error) {
	params := url.Values{}
	params.Set("section_id", lib.ID)
	params.Set("count", strconv.Itoa(limit))

	var resp tautulliRecentlyAddedResponse
	err := t.command(ctx, "get_recently_added", params, &resp, func() (string, *string) {
		return resp.Response.Result, resp.Response.Message
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(resp.Response.Data.RecentlyAdded))
	for _, raw := range resp.Response.Data.RecentlyAdded {
		if raw.RatingKey == "" || raw.AddedAt == 0 {
			logging.Warn().
				Str("source", t.ID()).
				Str("library", lib.Name).
				Str("title", raw.Title).
				Msg("Skipping malformed recently-added item")
			continue
		}
		items = append(items, models.Item{
			LibraryID: lib.ID,
			ID:        raw.RatingKey,
			MediaType: raw.MediaType,
			Year:      raw.Year,
			AddedAt:   raw.AddedAt,
			Fields: map[string]string{
				"title":              raw.Title,
				"parent_title":       raw.ParentTitle,
				"grandparent_title":  raw.GrandparentTitle,
				"media_type":         raw.MediaType,
				"year":               strconv.Itoa(raw.Year),
				"media_index":        strconv.Itoa(raw.MediaIndex),
				"parent_media_index": strconv.Itoa(raw.ParentMediaIndex),
			},
		})
	}
	return items, nil
}

// Activity implements Adapter. Playing and paused sessions come from
// get_activity; idle users get their newest history row as a
// last-played entry, newest first.
func (t *Tautulli) Activity(ctx context.Context) ([]models.Session, error) {
	var actResp tautulliActivityResponse
	err := t.command(ctx, "get_activity", nil, &actResp, func() (string, *string) {
		return actResp.Response.Result, actResp.Response.Message
	})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("length", strconv.Itoa(historyLength))
	var histResp tautulliHistoryResponse
	err = t.command(ctx, "get_history", params, &histResp, func() (string, *string) {
		return histResp.Response.Result, histResp.Response.Message
	})
	if err != nil {
		return nil, err
	}

	var sessions []models.Session
	activeUsers := make(map[int]bool)

	for _, s := range actResp.Response.Data.Sessions {
		activeUsers[s.UserID] = true
		state := models.SessionPlaying
		if s.State == "paused" {
			state = models.SessionPaused
		}
		progress, _ := strconv.ParseFloat(s.ProgressPercent, 64)
		user := s.FriendlyName
		if user == "" {
			user = s.User
		}
		sessions = append(sessions, models.Session{
			SourceID: t.ID(),
			User:     user,
			State:    state,
			Position: MillisToClock(s.ViewOffset),
			Runtime:  MillisToClock(s.Duration),
			Progress: progress,
			Fields: map[string]string{
				"full_title":        s.FullTitle,
				"title":             s.Title,
				"grandparent_title": s.GrandparentTitle,
				"state":             s.State,
			},
		})
	}

	// Newest history row per idle user.
	lastPlayed := make(map[int]tautulliHistoryRow)
	for _, row := range histResp.Response.Data.Data {
		if activeUsers[row.UserID] {
			continue
		}
		if _, seen := lastPlayed[row.UserID]; !seen {
			lastPlayed[row.UserID] = row
		}
	}

	idle := make([]models.Session, 0, len(lastPlayed))
	for _, row := range lastPlayed {
		user := row.FriendlyName
		if user == "" {
			user = row.User
		}
		idle = append(idle, models.Session{
			SourceID:     t.ID(),
			User:         user,
			State:        models.SessionLastPlayed,
			LastActivity: row.Stopped,
			Fields: map[string]string{
				"full_title": row.FullTitle,
			},
		})
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].LastActivity > idle[j].LastActivity
	})

	return append(sessions, idle...), nil
}
