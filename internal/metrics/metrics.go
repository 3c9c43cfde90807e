// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Background refresh cycles (detection, fetch, publish)
// - Cache state per source
// - Upstream circuit breakers
// - API endpoint latency and throughput

var (
	// Refresh Engine Metrics
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeshelf_refresh_total",
			Help: "Total number of completed refresh attempts per source",
		},
		[]string{"source", "result"}, // result: "success", "error", "skipped"
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeshelf_refresh_duration_seconds",
			Help:    "Duration of full cache refreshes in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	DetectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeshelf_detect_total",
			Help: "Total number of change-detection probes per source",
		},
		[]string{"source", "result"}, // result: "changed", "unchanged", "error"
	)

	// Cache Metrics
	CacheFreshness = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeshelf_cache_freshness",
			Help: "Cache entry freshness per source (0=unprimed, 1=stale, 2=fresh)",
		},
		[]string{"source"},
	)

	CacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeshelf_cache_items",
			Help: "Number of cached recently-added items per source",
		},
		[]string{"source"},
	)

	CacheLastRefresh = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeshelf_cache_last_refresh_timestamp_seconds",
			Help: "Unix timestamp of the last successful refresh per source",
		},
		[]string{"source"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeshelf_circuit_breaker_requests_total",
			Help: "Total requests through circuit breakers by outcome",
		},
		[]string{"breaker", "outcome"}, // outcome: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeshelf_circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures per circuit breaker",
		},
		[]string{"breaker"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeshelf_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeshelf_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeshelf_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveAPIRequest records one served API request.
func ObserveAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetCacheFreshness maps a freshness name to its gauge value.
func SetCacheFreshness(source, freshness string) {
	var v float64
	switch freshness {
	case "fresh":
		v = 2
	case "stale":
		v = 1
	default:
		v = 0
	}
	CacheFreshness.WithLabelValues(source).Set(v)
}
