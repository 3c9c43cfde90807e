// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package aggregate

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/homeshelf/internal/mapping"
	"github.com/tomtom215/homeshelf/internal/models"
)

// RenderedGroup is one library's rendered items, keyed by display name
// in the response object.
type RenderedGroup struct {
	Name  string
	Items []models.RenderedItem
}

// RenderedLibraries marshals as an ordered JSON object:
// {"Movies": {"items": [...]}, "Shows": {"items": [...]}}.
// Library order from the upstream is preserved; Go maps would
// randomize it.
type RenderedLibraries []RenderedGroup

func (r RenderedLibraries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(g.Name)
		if err != nil {
			return nil, err
		}
		items, err := json.Marshal(struct {
			Items []models.RenderedItem `json:"items"`
		}{Items: g.Items})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(items)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CountGroup is one library's counts in the /api/counts response.
type CountGroup struct {
	Name   string
	Counts models.Counts
}

// LibraryCounts marshals as an ordered JSON object:
// {"Movies": {"counts": {"Movies": 1234}}}.
type LibraryCounts []CountGroup

func (l LibraryCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(g.Name)
		if err != nil {
			return nil, err
		}
		counts, err := json.Marshal(struct {
			Counts models.Counts `json:"counts"`
		}{Counts: g.Counts})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(counts)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RenderItems renders a cached snapshot for the /api/added response:
// titles through the mapping rules, at most count items per library,
// dates per the requested format. The snapshot itself is never
// mutated.
func RenderItems(rules *mapping.Rules, sourceID string, groups []models.LibraryGroup, count int, format DateFormat, now time.Time) RenderedLibraries {
	out := make(RenderedLibraries, 0, len(groups))
	for _, group := range groups {
		items := group.Items
		if count > 0 && len(items) > count {
			items = items[:count]
		}
		rendered := make([]models.RenderedItem, 0, len(items))
		for _, item := range items {
			rendered = append(rendered, models.RenderedItem{
				Title:   rules.TitleFor(sourceID, item.MediaType, item.Fields),
				Year:    item.Year,
				AddedAt: item.AddedAt,
				Date:    FormatDate(format, item.AddedAt, now),
			})
		}
		out = append(out, RenderedGroup{Name: group.Name, Items: rendered})
	}
	return out
}

// RenderCounts renders a cached snapshot for the /api/counts response.
func RenderCounts(groups []models.LibraryGroup) LibraryCounts {
	out := make(LibraryCounts, 0, len(groups))
	for _, group := range groups {
		out = append(out, CountGroup{Name: group.Name, Counts: group.Counts})
	}
	return out
}

// ActivityRow is one rendered session for the /api/activity response.
type ActivityRow struct {
	Title      string  `json:"title"`
	User       string  `json:"user"`
	Status     string  `json:"status"`
	StatusDot  string  `json:"status_dot"`
	Position   string  `json:"position,omitempty"`
	Runtime    string  `json:"runtime,omitempty"`
	Progress   float64 `json:"progress,omitempty"`
	LastPlayed string  `json:"last_played,omitempty"`
}

// RenderSessions renders live sessions into activity rows. Sessions
// arrive active-first from the adapters and keep that order here.
func RenderSessions(sessions []models.Session, format DateFormat, now time.Time) []ActivityRow {
	rows := make([]ActivityRow, 0, len(sessions))
	for _, s := range sessions {
		row := ActivityRow{
			Title:     sessionTitle(s.Fields),
			User:      s.User,
			Status:    statusLabel(s.State),
			StatusDot: s.State.StatusDot(),
			Position:  s.Position,
			Runtime:   s.Runtime,
			Progress:  s.Progress,
		}
		if s.State == models.SessionLastPlayed && s.LastActivity > 0 {
			row.LastPlayed = FormatDate(format, s.LastActivity, now)
		}
		if row.User == "" {
			row.User = "Unknown User"
		}
		rows = append(rows, row)
	}
	return rows
}

// sessionTitle picks a display title from whatever fields the source
// provided.
func sessionTitle(fields map[string]string) string {
	if v := fields["full_title"]; v != "" {
		return v
	}
	if series, name := fields["SeriesName"], fields["Name"]; series != "" && name != "" {
		return series + " - " + name
	}
	for _, key := range []string{"Name", "title"} {
		if v := fields[key]; v != "" {
			return v
		}
	}
	return mapping.UnknownTitle
}

func statusLabel(state models.SessionState) string {
	switch state {
	case models.SessionPlaying:
		return "Playing"
	case models.SessionPaused:
		return "Paused"
	case models.SessionLastPlayed:
		return "Last Played"
	default:
		return "Unknown"
	}
}
