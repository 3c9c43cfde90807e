// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

/*
audiobookshelf.go - Audiobookshelf Source Adapter

Talks to the Audiobookshelf API using a Bearer token. Endpoints:
  - GET /api/libraries: library list
  - GET /api/libraries/{id}/stats: item and author totals
  - GET /api/libraries/{id}/items?sort=addedAt-desc&limit=N: newest items

Audiobookshelf reports addedAt in milliseconds; it is converted to
epoch seconds on ingest. Audiobookshelf has no session concept we can
surface, so Activity returns ErrNotSupported.
*/
package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/homeshelf/internal/config"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/models"
)

// Audiobookshelf adapts the Audiobookshelf API to the Adapter
// interface.
type Audiobookshelf struct {
	client *apiClient
}

// NewAudiobookshelf builds an Audiobookshelf adapter from its
// configuration.
func NewAudiobookshelf(cfg config.AudiobookshelfConfig, timeout time.Duration) *Audiobookshelf {
	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	return &Audiobookshelf{
		client: newAPIClient(cfg.URL, headers, timeout),
	}
}

func (a *Audiobookshelf) ID() string   { return "audiobookshelf" }
func (a *Audiobookshelf) Name() string { return "Audiobookshelf" }

type absLibrariesResponse struct {
	Libraries []absLibrary `json:"libraries"`
}

type absLibrary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MediaType  string `json:"mediaType"`  // book or podcast
	LastUpdate int64  `json:"lastUpdate"` // milliseconds
}

type absStatsResponse struct {
	TotalItems   int `json:"totalItems"`
	TotalAuthors int `json:"totalAuthors"`
}

type absItemsResponse struct {
	Results []absItem `json:"results"`
}

type absItem struct {
	ID      string `json:"id"`
	AddedAt int64  `json:"addedAt"` // milliseconds
	Media   struct {
		Metadata struct {
			Title         string   `json:"title"`
			Subtitle      string   `json:"subtitle"`
			AuthorName    string   `json:"authorName"`
			NarratorName  string   `json:"narratorName"`
			SeriesName    string   `json:"seriesName"`
			PublishedYear string   `json:"publishedYear"`
			Genres        []string `json:"genres"`
		} `json:"metadata"`
	} `json:"media"`
}

// Libraries implements Adapter. Each library needs a follow-up stats
// call for its counts.
func (a *Audiobookshelf) Libraries(ctx context.Context) ([]models.Library, error) {
	var resp absLibrariesResponse
	if err := a.client.getJSON(ctx, "/api/libraries", nil, &resp); err != nil {
		return nil, err
	}

	libraries := make([]models.Library, 0, len(resp.Libraries))
	for _, lib := range resp.Libraries {
		var stats absStatsResponse
		if err := a.client.getJSON(ctx, fmt.Sprintf("/api/libraries/%s/stats", lib.ID), nil, &stats); err != nil {
			logging.Warn().
				Str("source", a.ID()).
				Str("library", lib.Name).
				Err(err).
				Msg("Could not fetch library stats, skipping library")
			continue
		}
		counts := models.Counts{
			{Label: "Books", Count: stats.TotalItems},
		}
		if stats.TotalAuthors > 0 {
			counts = append(counts, models.CountPair{Label: "Authors", Count: stats.TotalAuthors})
		}
		libraries = append(libraries, models.Library{
			SourceID: a.ID(),
			ID:       lib.ID,
			Name:     lib.Name,
			// lastUpdate moves whenever library content changes, so it
			// catches same-count swaps the totals alone would miss.
			LastAdded: lib.LastUpdate / 1000,
			MediaType: lib.MediaType,
			Counts:    counts,
		})
	}
	return libraries, nil
}

// RecentlyAdded implements Adapter.
func (a *Audiobookshelf) RecentlyAdded(ctx context.Context, lib models.Library, limit int) ([]models.Item, error) {
	params := url.Values{}
	params.Set("sort", "addedAt-desc")
	params.Set("limit", strconv.Itoa(limit))

	var resp absItemsResponse
	if err := a.client.getJSON(ctx, fmt.Sprintf("/api/libraries/%s/items", lib.ID), params, &resp); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ID == "" || r.AddedAt == 0 {
			logging.Warn().
				Str("source", a.ID()).
				Str("library", lib.Name).
				Str("title", r.Media.Metadata.Title).
				Msg("Skipping malformed recently-added item")
			continue
		}
		meta := r.Media.Metadata
		genre := ""
		if len(meta.Genres) > 0 {
			genre = meta.Genres[0]
		}
		year, _ := strconv.Atoi(meta.PublishedYear)
		items = append(items, models.Item{
			LibraryID: lib.ID,
			ID:        r.ID,
			MediaType: lib.MediaType,
			Year:      year,
			AddedAt:   r.AddedAt / 1000, // ms to seconds
			Fields: map[string]string{
				"title":         meta.Title,
				"subtitle":      meta.Subtitle,
				"authorName":    meta.AuthorName,
				"narratorName":  meta.NarratorName,
				"seriesName":    meta.SeriesName,
				"publishedYear": meta.PublishedYear,
				"genre":         genre,
			},
		})
	}
	return items, nil
}

// Activity implements Adapter. Audiobookshelf exposes no session data
// homeshelf can use.
func (a *Audiobookshelf) Activity(ctx context.Context) ([]models.Session, error) {
	return nil, ErrNotSupported
}
