// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package source

import "fmt"

// MillisToClock converts a millisecond duration to HH:MM:SS. Negative
// or zero durations return "00:00:00". Tautulli reports position and
// duration in milliseconds.
func MillisToClock(ms int64) string {
	if ms <= 0 {
		return "00:00:00"
	}
	return secondsToClock(ms / 1000)
}

// TicksToClock converts 100-nanosecond ticks to HH:MM:SS. Jellyfin and
// therefore Jellystat report playback positions in ticks.
func TicksToClock(ticks int64) string {
	if ticks <= 0 {
		return "00:00:00"
	}
	return secondsToClock(ticks / 10_000_000)
}

func secondsToClock(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
