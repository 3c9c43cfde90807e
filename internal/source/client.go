// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// maxErrorBodySize limits how much of an error response body is read
// for diagnostics. Prevents unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max
// 64KB), indicating truncation when the limit is hit.
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// apiClient is the shared HTTP layer used by all adapters. It handles
// base URL joining, per-source auth headers, client-side request
// pacing, and HTTP 429 retry with exponential backoff honoring
// Retry-After.
//
// Thread Safety: safe for concurrent use; each call builds its own
// request and the limiter is internally synchronized.
type apiClient struct {
	baseURL        string
	headers        map[string]string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// newAPIClient builds a client for one upstream. Requests are paced to
// 5/s with a burst of 10 so a priming pass over many libraries does
// not hammer the upstream.
func newAPIClient(baseURL string, headers map[string]string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		headers: headers,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(5), 10),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// getJSON performs a GET against path (joined to the base URL), decodes
// the JSON body into result, and classifies failures into the package
// error taxonomy.
func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(0, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return classify(resp.StatusCode, path, fmt.Errorf("%s", body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return protocolErr(path, err)
	}
	return nil
}

// doRequestWithRateLimit waits on the pacing limiter, then performs the
// request with automatic HTTP 429 handling. Backoff doubles each
// attempt (1s, 2s, 4s, 8s, 16s) unless the upstream sends Retry-After.
func (c *apiClient) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
