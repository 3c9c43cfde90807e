// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/homeshelf/internal/aggregate"
	"github.com/tomtom215/homeshelf/internal/cache"
	"github.com/tomtom215/homeshelf/internal/config"
	"github.com/tomtom215/homeshelf/internal/mapping"
	"github.com/tomtom215/homeshelf/internal/source"
)

// Version is the reported application version. Overridden at build
// time via -ldflags "-X .../internal/api.Version=v1.2.3".
var Version = "dev"

// cacheStartingMessage matches what the homepage widgets display while
// the engine primes its first snapshot.
const cacheStartingMessage = "Service is starting, data is being cached. Please try again."

// Handler contains dependencies for the API handlers. Cached endpoints
// (/api/counts, /api/added) read snapshots from the store; live
// endpoints (/api/{source}/libraries, /api/activity) call the adapters
// directly. Handlers never trigger refreshes.
type Handler struct {
	cfg       *config.Config
	store     *cache.Store
	adapters  map[string]source.Adapter
	order     []string
	mapper    *mapping.Manager
	startTime time.Time
}

// NewHandler creates an API handler. The adapter slice order is
// preserved for /api/sources listings.
func NewHandler(cfg *config.Config, store *cache.Store, adapters []source.Adapter, mapper *mapping.Manager) *Handler {
	byID := make(map[string]source.Adapter, len(adapters))
	order := make([]string, 0, len(adapters))
	for _, a := range adapters {
		byID[a.ID()] = a
		order = append(order, a.ID())
	}
	return &Handler{
		cfg:       cfg,
		store:     store,
		adapters:  byID,
		order:     order,
		mapper:    mapper,
		startTime: time.Now(),
	}
}

// requestCtx derives a context bounded by the configured upstream
// request timeout for live (non-cached) endpoints.
func (h *Handler) requestCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.Poll.RequestTimeout)
}

// sourceInfo is one entry of the /api/sources listings.
type sourceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sources returns all configured data sources.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	h.listSources(w)
}

// MainSources returns the configured data sources intended for the
// "Recently Added" page. Today this is the same set as /api/sources;
// the endpoint exists so clients can keep a stable contract if
// special-purpose sources are ever added.
func (h *Handler) MainSources(w http.ResponseWriter, r *http.Request) {
	h.listSources(w)
}

func (h *Handler) listSources(w http.ResponseWriter) {
	sources := make([]sourceInfo, 0, len(h.order))
	for _, id := range h.order {
		sources = append(sources, sourceInfo{ID: id, Name: h.adapters[id].Name()})
	}
	respondJSON(w, http.StatusOK, sources)
}

// VersionInfo returns the application version.
func (h *Handler) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// Libraries lists a source's libraries with media counts, fetched live
// from the upstream.
func (h *Handler) Libraries(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source")
	adapter, ok := h.adapters[sourceID]
	if !ok {
		respondError(w, http.StatusInternalServerError,
			fmt.Sprintf("Source '%s' is not configured on the server.", sourceID), nil)
		return
	}

	ctx, cancel := h.requestCtx(r)
	defer cancel()

	libraries, err := adapter.Libraries(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway,
			fmt.Sprintf("Failed to communicate with %s.", adapter.Name()), err)
		return
	}
	respondJSON(w, http.StatusOK, libraries)
}

// Counts returns per-library media counts from the cached snapshot.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.cachedEntry(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, aggregate.RenderCounts(entry.Groups))
}

// Added returns recently added items from the cached snapshot, grouped
// by library, with title-mapping rules and the requested date format
// applied at render time. The count parameter limits items per library
// and is clamped to the configured maximum.
func (h *Handler) Added(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.cachedEntry(w, r)
	if !ok {
		return
	}

	count := getIntParam(r, "count", h.cfg.API.DefaultCount)
	if count < 1 {
		count = h.cfg.API.DefaultCount
	}
	if count > h.cfg.API.MaxCount {
		count = h.cfg.API.MaxCount
	}
	format := aggregate.ParseDateFormat(r.URL.Query().Get("dateFormat"))

	rendered := aggregate.RenderItems(h.mapper.Rules(), entry.SourceID, entry.Groups, count, format, time.Now())
	respondJSON(w, http.StatusOK, rendered)
}

// cachedEntry resolves the source query parameter to a cache entry,
// writing the appropriate error response when it cannot. The freshness
// header is set on every successful resolution so clients can surface
// stale data.
func (h *Handler) cachedEntry(w http.ResponseWriter, r *http.Request) (cache.Entry, bool) {
	sourceID := r.URL.Query().Get("source")
	if sourceID == "" {
		respondError(w, http.StatusBadRequest, "A 'source' query parameter is required.", nil)
		return cache.Entry{}, false
	}
	if _, configured := h.adapters[sourceID]; !configured {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown source '%s'.", sourceID), nil)
		return cache.Entry{}, false
	}

	entry, ok := h.store.Read(sourceID)
	if !ok || entry.Freshness == cache.Unprimed {
		respondError(w, http.StatusServiceUnavailable, cacheStartingMessage, nil)
		return cache.Entry{}, false
	}

	w.Header().Set("X-Cache-Freshness", string(entry.Freshness))
	return entry, true
}

// Activity returns the source's current playback sessions, fetched
// live, merged with last-played rows for idle users. Sources without
// an activity concept return an empty list.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source")
	if sourceID == "" {
		respondError(w, http.StatusBadRequest, "A 'source' query parameter is required.", nil)
		return
	}
	adapter, ok := h.adapters[sourceID]
	if !ok {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown source '%s'.", sourceID), nil)
		return
	}

	ctx, cancel := h.requestCtx(r)
	defer cancel()

	format := aggregate.ParseDateFormat(r.URL.Query().Get("dateFormat"))

	sessions, err := adapter.Activity(ctx)
	if err != nil {
		if errors.Is(err, source.ErrNotSupported) {
			respondJSON(w, http.StatusOK, []aggregate.ActivityRow{})
			return
		}
		respondError(w, http.StatusBadGateway,
			fmt.Sprintf("Failed to communicate with %s.", adapter.Name()), err)
		return
	}
	respondJSON(w, http.StatusOK, aggregate.RenderSessions(sessions, format, time.Now()))
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports readiness: the cache must hold at least one
// snapshot for every pollable source, ignoring sources parked on
// authentication failures.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.store.Primed() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "starting",
			"uptime": time.Since(h.startTime).Truncate(time.Second).String(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"uptime": time.Since(h.startTime).Truncate(time.Second).String(),
	})
}
