// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package models

import (
	"sort"
	"strconv"
	"strings"
)

// Fingerprint is an opaque summary of a source's library state. Two
// fingerprints are only ever compared for equality; the string content
// carries no ordering semantics.
type Fingerprint string

// FingerprintOf derives a fingerprint from a library listing: per
// library its total item count and newest added-at epoch. Libraries are
// sorted by ID first so fingerprints are stable regardless of the
// order the upstream returns them in.
func FingerprintOf(libraries []Library) Fingerprint {
	parts := make([]string, 0, len(libraries))
	for _, lib := range libraries {
		parts = append(parts,
			lib.ID+"="+strconv.Itoa(lib.Counts.Total())+"@"+strconv.FormatInt(lib.LastAdded, 10))
	}
	sort.Strings(parts)
	return Fingerprint(strings.Join(parts, ";"))
}

// Equal reports whether two fingerprints describe the same upstream
// state.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f == other
}
