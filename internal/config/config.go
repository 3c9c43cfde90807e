// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package config holds all application configuration loaded from
// environment variables and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for homeshelf.
type Config struct {
	Tautulli       TautulliConfig       `koanf:"tautulli"`
	Jellystat      JellystatConfig      `koanf:"jellystat"`
	Audiobookshelf AudiobookshelfConfig `koanf:"audiobookshelf"`
	Poll           PollConfig           `koanf:"poll"`
	Server         ServerConfig         `koanf:"server"`
	API            APIConfig            `koanf:"api"`
	Mapping        MappingConfig        `koanf:"mapping"`
	Logging        LoggingConfig        `koanf:"logging"`
}

// SourceConfig is the common shape of one configured upstream,
// used by the wiring code that builds adapters.
type SourceConfig struct {
	ID      string // "tautulli", "jellystat", "audiobookshelf"
	Name    string // display name
	URL     string
	APIKey  string
	Enabled bool
}

// Sources returns the enabled upstream sources in their canonical
// order. A source is enabled when its URL and API key are both set
// (or Enabled is forced on).
func (c *Config) Sources() []SourceConfig {
	var out []SourceConfig
	if s := c.Tautulli.source(); s.Enabled {
		out = append(out, s)
	}
	if s := c.Jellystat.source(); s.Enabled {
		out = append(out, s)
	}
	if s := c.Audiobookshelf.source(); s.Enabled {
		out = append(out, s)
	}
	return out
}

// TautulliConfig holds Tautulli connection settings.
//
// Environment Variables:
//   - TAUTULLI_URL: Tautulli server URL (e.g., http://localhost:8181)
//   - TAUTULLI_API_KEY: API key from Settings > Web Interface
type TautulliConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
}

func (c TautulliConfig) source() SourceConfig {
	return SourceConfig{
		ID:      "tautulli",
		Name:    "Tautulli",
		URL:     c.URL,
		APIKey:  c.APIKey,
		Enabled: c.Enabled || (c.URL != "" && c.APIKey != ""),
	}
}

// JellystatConfig holds Jellystat connection settings. Either URL or
// ContainerName must be set; ContainerName expands to
// http://<container>:8080 for docker-compose deployments where the
// Jellystat container is reachable by service name.
//
// Environment Variables:
//   - JELLYSTAT_URL: Jellystat base URL
//   - JELLYSTAT_CONTAINER: Container/service name (implies port 8080)
//   - JELLYSTAT_API_KEY: API token from Jellystat settings
type JellystatConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	ContainerName string `koanf:"container_name"`
	APIKey        string `koanf:"api_key"`
}

// BaseURL resolves the effective base URL. Direct container-to-container
// communication is preferred when a container name is configured;
// Jellystat's internal port is 8080.
func (c JellystatConfig) BaseURL() string {
	if c.ContainerName != "" {
		return fmt.Sprintf("http://%s:8080", c.ContainerName)
	}
	return c.URL
}

func (c JellystatConfig) source() SourceConfig {
	base := c.BaseURL()
	return SourceConfig{
		ID:      "jellystat",
		Name:    "Jellystat",
		URL:     base,
		APIKey:  c.APIKey,
		Enabled: c.Enabled || (base != "" && c.APIKey != ""),
	}
}

// AudiobookshelfConfig holds Audiobookshelf connection settings.
//
// Environment Variables:
//   - AUDIOBOOKSHELF_URL: Audiobookshelf server URL
//   - AUDIOBOOKSHELF_API_KEY: API token (sent as Bearer)
type AudiobookshelfConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
}

func (c AudiobookshelfConfig) source() SourceConfig {
	return SourceConfig{
		ID:      "audiobookshelf",
		Name:    "Audiobookshelf",
		URL:     c.URL,
		APIKey:  c.APIKey,
		Enabled: c.Enabled || (c.URL != "" && c.APIKey != ""),
	}
}

// PollConfig controls the background refresh engine.
//
// Environment Variables:
//   - POLL_INTERVAL: Change-detection cadence (default: 15s)
//   - REQUEST_TIMEOUT: Per-upstream-request timeout (default: 30s)
//   - POLL_MAX_BACKOFF: Backoff ceiling after repeated failures (default: 10m)
//   - ITEMS_PER_LIBRARY: Recently-added items fetched per library (default: 15)
type PollConfig struct {
	Interval        time.Duration `koanf:"interval"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	MaxBackoff      time.Duration `koanf:"max_backoff"`
	ItemsPerLibrary int           `koanf:"items_per_library"`
}

// ServerConfig holds HTTP server configuration.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8210)
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfig holds read-surface settings.
//
// Environment Variables:
//   - API_DEFAULT_COUNT: Default item count for /api/added (default: 15)
//   - API_MAX_COUNT: Upper bound for the count parameter (default: 50)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: Per-IP rate limit
type APIConfig struct {
	DefaultCount    int           `koanf:"default_count"`
	MaxCount        int           `koanf:"max_count"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// MappingConfig points at the optional title-mapping rules file.
//
// Environment Variables:
//   - MAPPING_PATH: Path to mappings YAML (default: /data/mappings.yaml)
type MappingConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: annotate events with file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
