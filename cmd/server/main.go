// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package main is the entry point for the Homeshelf server.
//
// Homeshelf aggregates "recently added" and live activity data from
// media server companion APIs (Tautulli, Jellystat, Audiobookshelf)
// into an in-memory cache, kept current by per-source background poll
// loops, and serves it over a small JSON API for homepage widgets.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and optional YAML (Koanf v2)
//  2. Source adapters: one per configured upstream, each wrapped in a
//     circuit breaker
//  3. Cache store: one entry per source, unprimed until first refresh
//  4. Title mappings: YAML rules with built-in per-source defaults
//  5. Supervisor tree: poll layer (one scheduler per source) and API
//     layer (HTTP server), supervised by suture
//
// # Configuration
//
// Sources are enabled by setting their URL and API key:
//   - TAUTULLI_URL, TAUTULLI_API_KEY
//   - JELLYSTAT_URL (or JELLYSTAT_CONTAINER), JELLYSTAT_API_KEY
//   - AUDIOBOOKSHELF_URL, AUDIOBOOKSHELF_API_KEY
//
// Engine tuning:
//   - POLL_INTERVAL: change-detection cadence (default 15s)
//   - POLL_MAX_BACKOFF: failure backoff ceiling (default 10m)
//   - REQUEST_TIMEOUT: per-upstream-request timeout (default 30s)
//   - ITEMS_PER_LIBRARY: recently-added depth per library (default 15)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: poll loops finish the
// pass in flight, the HTTP server drains connections for up to 10s.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/homeshelf/internal/api"
	"github.com/tomtom215/homeshelf/internal/cache"
	"github.com/tomtom215/homeshelf/internal/config"
	"github.com/tomtom215/homeshelf/internal/logging"
	"github.com/tomtom215/homeshelf/internal/mapping"
	"github.com/tomtom215/homeshelf/internal/refresh"
	"github.com/tomtom215/homeshelf/internal/source"
	"github.com/tomtom215/homeshelf/internal/supervisor"
	"github.com/tomtom215/homeshelf/internal/supervisor/services"
)

func main() {
	// Bootstrap logging with defaults so config errors are visible,
	// then reconfigure from the loaded settings.
	logging.Init(logging.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting homeshelf")

	adapters := buildAdapters(cfg)
	if len(adapters) == 0 {
		logging.Fatal().Msg("No data sources are configured")
	}

	sourceIDs := make([]string, 0, len(adapters))
	for _, a := range adapters {
		sourceIDs = append(sourceIDs, a.ID())
	}
	store := cache.NewStore(sourceIDs)

	mapper, err := mapping.NewManager(cfg.Mapping.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Mapping.Path).Msg("Failed to load title mappings")
	}

	handler := api.NewHandler(cfg, store, adapters, mapper)
	middleware := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
	})
	router := api.NewRouter(handler, middleware).Setup()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	for _, adapter := range adapters {
		scheduler := refresh.NewScheduler(
			adapter,
			store,
			cfg.Poll.Interval,
			cfg.Poll.MaxBackoff,
			cfg.Poll.RequestTimeout,
			cfg.Poll.ItemsPerLibrary,
		)
		tree.AddPollService(services.NewPollService(scheduler, adapter.ID()))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Int("sources", len(adapters)).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped gracefully")
}

// buildAdapters constructs one circuit-breaker-wrapped adapter per
// configured source, in the canonical source order.
func buildAdapters(cfg *config.Config) []source.Adapter {
	var adapters []source.Adapter
	for _, sc := range cfg.Sources() {
		var adapter source.Adapter
		switch sc.ID {
		case "tautulli":
			adapter = source.NewTautulli(cfg.Tautulli, cfg.Poll.RequestTimeout)
		case "jellystat":
			adapter = source.NewJellystat(cfg.Jellystat, cfg.Poll.RequestTimeout)
		case "audiobookshelf":
			adapter = source.NewAudiobookshelf(cfg.Audiobookshelf, cfg.Poll.RequestTimeout)
		default:
			logging.Warn().Str("source", sc.ID).Msg("Unknown source kind, skipping")
			continue
		}
		adapters = append(adapters, source.NewBreakerAdapter(adapter))
		logging.Info().
			Str("source", sc.ID).
			Str("name", sc.Name).
			Msg("Source configured")
	}
	return adapters
}
