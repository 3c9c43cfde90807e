// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetJSONDecodesAndSendsHeaders(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("x-api-token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Movies","count":42}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, map[string]string{"x-api-token": "secret"}, time.Second)

	var result struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := c.getJSON(context.Background(), "/test", nil, &result); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if gotToken != "secret" {
		t.Errorf("x-api-token = %q, want secret", gotToken)
	}
	if result.Name != "Movies" || result.Count != 42 {
		t.Errorf("result = %+v, want Movies/42", result)
	}
}

func TestGetJSONErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, ErrAuth},
		{"forbidden", http.StatusForbidden, `{"error":"no access"}`, ErrAuth},
		{"not found", http.StatusNotFound, "not here", ErrProtocol},
		{"server error", http.StatusInternalServerError, "boom", ErrUnreachable},
		{"bad gateway", http.StatusBadGateway, "upstream gone", ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newAPIClient(srv.URL, nil, time.Second)
			var out map[string]interface{}
			err := c.getJSON(context.Background(), "/test", nil, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("getJSON error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetJSONConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := newAPIClient(srv.URL, nil, time.Second)
	var out map[string]interface{}
	err := c.getJSON(context.Background(), "/test", nil, &out)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("getJSON error = %v, want ErrUnreachable", err)
	}
}

func TestGetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, nil, time.Second)
	var out map[string]interface{}
	err := c.getJSON(context.Background(), "/test", nil, &out)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("getJSON error = %v, want ErrProtocol", err)
	}
}

func TestRetryOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, nil, time.Second)
	c.retryBaseDelay = time.Millisecond

	var out map[string]bool
	if err := c.getJSON(context.Background(), "/test", nil, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (two 429s then success)", got)
	}
	if !out["ok"] {
		t.Error("expected decoded body from successful retry")
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, nil, time.Second)
	c.retryBaseDelay = 10 * time.Second // would stall the test if Retry-After were ignored

	start := time.Now()
	var out map[string]interface{}
	if err := c.getJSON(context.Background(), "/test", nil, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("retry took %v, Retry-After: 0 should shortcut the backoff", elapsed)
	}
}

func TestRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, nil, time.Second)
	c.maxRetries = 1
	c.retryBaseDelay = time.Millisecond

	var out map[string]interface{}
	err := c.getJSON(context.Background(), "/test", nil, &out)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("getJSON error = %v, want ErrUnreachable after retries exhausted", err)
	}
}

func TestReadBodyForErrorTruncates(t *testing.T) {
	big := strings.NewReader(strings.Repeat("x", maxErrorBodySize*2))
	body := readBodyForError(big)
	if !strings.HasSuffix(string(body), "(truncated)") {
		t.Error("oversized body should be marked truncated")
	}

	small := strings.NewReader("short error")
	if got := string(readBodyForError(small)); got != "short error" {
		t.Errorf("small body = %q, want unchanged", got)
	}
}

func TestClockConversions(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"millis zero", MillisToClock(0), "00:00:00"},
		{"millis 90 minutes", MillisToClock(90 * 60 * 1000), "01:30:00"},
		{"millis with seconds", MillisToClock(3_723_000), "01:02:03"},
		{"ticks zero", TicksToClock(0), "00:00:00"},
		{"ticks 42 minutes", TicksToClock(42 * 60 * 10_000_000), "00:42:00"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
