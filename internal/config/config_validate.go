// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the loaded configuration for consistency. At least
// one upstream source must be usable, URLs must parse, and durations
// and counts must be positive.
func (c *Config) Validate() error {
	sources := c.Sources()
	if len(sources) == 0 {
		return fmt.Errorf("no media sources configured: set at least one of " +
			"TAUTULLI_URL+TAUTULLI_API_KEY, JELLYSTAT_URL+JELLYSTAT_API_KEY, " +
			"or AUDIOBOOKSHELF_URL+AUDIOBOOKSHELF_API_KEY")
	}
	for _, s := range sources {
		if s.URL == "" {
			return fmt.Errorf("%s: URL is required when the source is enabled", s.ID)
		}
		if err := validateURL(s.ID, s.URL); err != nil {
			return err
		}
		if s.APIKey == "" {
			return fmt.Errorf("%s: API key is required when the source is enabled", s.ID)
		}
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %v", c.Poll.Interval)
	}
	if c.Poll.RequestTimeout <= 0 {
		return fmt.Errorf("poll.request_timeout must be positive, got %v", c.Poll.RequestTimeout)
	}
	if c.Poll.MaxBackoff < c.Poll.Interval {
		return fmt.Errorf("poll.max_backoff (%v) must be at least poll.interval (%v)",
			c.Poll.MaxBackoff, c.Poll.Interval)
	}
	if c.Poll.ItemsPerLibrary <= 0 {
		return fmt.Errorf("poll.items_per_library must be positive, got %d", c.Poll.ItemsPerLibrary)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	if c.API.DefaultCount <= 0 {
		return fmt.Errorf("api.default_count must be positive, got %d", c.API.DefaultCount)
	}
	if c.API.MaxCount < c.API.DefaultCount {
		return fmt.Errorf("api.max_count (%d) must be at least api.default_count (%d)",
			c.API.MaxCount, c.API.DefaultCount)
	}
	if c.API.RateLimitReqs > 0 && c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("api.rate_limit_window must be positive when rate limiting is enabled")
	}

	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

func validateURL(source, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", source, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: URL must use http or https, got %q", source, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL %q has no host", source, raw)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "":
		return nil
	}
	return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", level)
}

// sanity bound so a misconfigured interval cannot hot-loop the poller
const minPollInterval = time.Second

// EffectiveInterval clamps the poll interval to the minimum supported
// cadence.
func (p PollConfig) EffectiveInterval() time.Duration {
	if p.Interval < minPollInterval {
		return minPollInterval
	}
	return p.Interval
}
