// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers to routes.
type Router struct {
	handler    *Handler
	middleware *ChiMiddleware
}

// NewRouter creates a router for the given handler and middleware
// factory.
func NewRouter(handler *Handler, middleware *ChiMiddleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order. CORS is global so OPTIONS
	// preflight requests are answered everywhere.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)

		r.Get("/version", router.handler.VersionInfo)
		r.Get("/sources", router.handler.Sources)
		r.Get("/main-sources", router.handler.MainSources)
		r.Get("/counts", router.handler.Counts)
		r.Get("/added", router.handler.Added)
		r.Get("/activity", router.handler.Activity)
		r.Get("/{source}/libraries", router.handler.Libraries)
	})

	return r
}
