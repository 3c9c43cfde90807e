// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package mapping turns raw upstream item fields into display titles
// via user-configurable templates.
//
// A template is a string with {field} placeholders, e.g.
// "{grandparent_title} - S{parent_media_index}E{media_index} - {title}".
// Placeholders resolve against the item's field map; a missing field
// renders as the empty string rather than failing, so one malformed
// item cannot break a whole response.
//
// Rules are keyed by (source, media type). Lookup takes the first
// matching rule: an exact media-type match wins, then the source's
// "default" rule, otherwise the item falls back to its raw title
// field, and as a last resort to "Unknown Title".
package mapping

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/homeshelf/internal/logging"
)

// UnknownTitle is the terminal fallback when no rule matches and the
// item carries no usable title field.
const UnknownTitle = "Unknown Title"

// defaultRuleKey is the media-type key of a source's catch-all rule.
const defaultRuleKey = "default"

// Rule is one title template for a (source, media type) pair.
type Rule struct {
	Template string   `koanf:"template"`
	Fields   []string `koanf:"fields"`
}

// Rules holds the full mapping table: source -> media type -> rule.
// Immutable after Load; safe for concurrent reads.
type Rules struct {
	table map[string]map[string]Rule
}

// DefaultRules mirrors the built-in templates shipped with homeshelf.
// The Fields lists document which placeholders each source provides;
// they drive the mappings editor, not the renderer.
func DefaultRules() *Rules {
	return &Rules{table: map[string]map[string]Rule{
		"tautulli": {
			"movie": {
				Template: "{title}",
				Fields:   []string{"title", "year", "media_type", "grandparent_title", "parent_title"},
			},
			"episode": {
				Template: "{grandparent_title} - S{parent_media_index}E{media_index} - {title}",
				Fields:   []string{"title", "year", "media_type", "grandparent_title", "parent_title", "parent_media_index", "media_index"},
			},
			"album": {
				Template: "{parent_title} - {title}",
				Fields:   []string{"title", "year", "media_type", "parent_title"},
			},
		},
		"jellystat": {
			"Movie": {
				Template: "{Name}",
				Fields:   []string{"Name"},
			},
			"Episode": {
				Template: "{SeriesName} - S{SeasonNumber}E{EpisodeNumber} - {Name}",
				Fields:   []string{"Name", "SeriesName", "SeasonNumber", "EpisodeNumber"},
			},
			"Audio": {
				Template: "{Name}",
				Fields:   []string{"Name"},
			},
		},
		"audiobookshelf": {
			"book": {
				Template: "{authorName} - {title}",
				Fields:   []string{"title", "subtitle", "authorName", "narratorName", "seriesName", "genre", "publishedYear"},
			},
		},
	}}
}

// Load reads rules from a YAML file, falling back to the defaults when
// the file does not exist. A malformed file is an error; silently
// reverting to defaults would mask a user's broken edit.
func Load(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	if _, err := os.Stat(path); err != nil {
		logging.Info().Str("path", path).Msg("No mappings file found, using built-in templates")
		return DefaultRules(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load mappings file %s: %w", path, err)
	}

	table := make(map[string]map[string]Rule)
	if err := k.Unmarshal("", &table); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file %s: %w", path, err)
	}

	logging.Info().Str("path", path).Int("sources", len(table)).Msg("Loaded title mappings")
	return &Rules{table: table}, nil
}

// TitleFor renders the display title for one item. mediaType selects
// the rule within the source's table; a source may carry a "default"
// rule that applies to any media type without an exact match.
func (r *Rules) TitleFor(sourceID, mediaType string, fields map[string]string) string {
	if sourceRules, ok := r.table[sourceID]; ok {
		if rule, ok := sourceRules[mediaType]; ok && rule.Template != "" {
			return Render(rule.Template, fields)
		}
		if rule, ok := sourceRules[defaultRuleKey]; ok && rule.Template != "" {
			return Render(rule.Template, fields)
		}
	}

	// No rule: fall back to the item's own title field.
	for _, key := range []string{"title", "Name", "name"} {
		if v, ok := fields[key]; ok && v != "" {
			return v
		}
	}
	return UnknownTitle
}

// Render substitutes {field} placeholders in template from fields.
// Unknown placeholders render as empty strings. A lone '{' with no
// closing brace is emitted literally.
func Render(template string, fields map[string]string) string {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		b.WriteString(template[i : i+open])
		i += open

		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		key := template[i+1 : i+end]
		b.WriteString(fields[key])
		i += end + 1
	}
	return b.String()
}

// Manager serves the active rule set and supports atomic reload, so a
// mappings edit takes effect without restarting.
type Manager struct {
	mu    sync.RWMutex
	path  string
	rules *Rules
}

// NewManager loads the initial rule set from path.
func NewManager(path string) (*Manager, error) {
	rules, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, rules: rules}, nil
}

// Rules returns the active rule set.
func (m *Manager) Rules() *Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules
}

// Reload re-reads the mappings file. On error the previous rules stay
// active.
func (m *Manager) Reload() error {
	rules, err := Load(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rules = rules
	m.mu.Unlock()
	return nil
}
