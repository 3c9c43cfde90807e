// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package aggregate renders cached snapshots and live sessions into
// the response shapes the homepage widgets consume: titles resolved
// through mapping templates, dates formatted per request, library
// order preserved.
package aggregate

import (
	"fmt"
	"time"
)

// DateFormat selects how added-at timestamps are rendered.
type DateFormat string

const (
	DateNone     DateFormat = ""
	DateShort    DateFormat = "short"    // "Jan 02"
	DateRelative DateFormat = "relative" // "3 hours ago"
)

// ParseDateFormat validates a dateFormat query value. Anything other
// than "short" or "relative" means no formatting, matching the
// permissive handling of the query parameter.
func ParseDateFormat(s string) DateFormat {
	switch s {
	case "short":
		return DateShort
	case "relative":
		return DateRelative
	default:
		return DateNone
	}
}

// FormatDate renders ts according to format, empty string for
// DateNone.
func FormatDate(format DateFormat, ts int64, now time.Time) string {
	switch format {
	case DateShort:
		return FormatShort(ts)
	case DateRelative:
		return FormatRelative(ts, now)
	default:
		return ""
	}
}

// FormatShort renders an epoch as "Jan 02".
func FormatShort(ts int64) string {
	return time.Unix(ts, 0).Format("Jan 02")
}

// FormatRelative renders an epoch as a coarse age relative to now.
// Buckets use floor division: 59s is "59 seconds ago", 3600s is
// "1 hour ago", and so on through days, months (30 days) and years
// (365 days). Single units render singular. A timestamp in the future
// clamps to zero seconds.
func FormatRelative(ts int64, now time.Time) string {
	seconds := now.Unix() - ts
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return relativePhrase(seconds, "second")
	case seconds < 3600:
		return relativePhrase(seconds/60, "minute")
	case seconds < 86400:
		return relativePhrase(seconds/3600, "hour")
	case seconds < 2592000: // 30 days
		return relativePhrase(seconds/86400, "day")
	case seconds < 31536000: // 365 days
		return relativePhrase(seconds/2592000, "month")
	default:
		return relativePhrase(seconds/31536000, "year")
	}
}

func relativePhrase(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
