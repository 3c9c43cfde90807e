// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package models

import "testing"

func testLibraries() []Library {
	return []Library{
		{ID: "1", Counts: Counts{{Label: "Movies", Count: 42}}, LastAdded: 1700000000},
		{ID: "2", Counts: Counts{{Label: "Books", Count: 7}}, LastAdded: 1690000000},
	}
}

func TestFingerprintStableAcrossOrder(t *testing.T) {
	libs := testLibraries()
	reversed := []Library{libs[1], libs[0]}

	if !FingerprintOf(libs).Equal(FingerprintOf(reversed)) {
		t.Error("fingerprint should not depend on upstream listing order")
	}
}

func TestFingerprintChangesOnCount(t *testing.T) {
	before := FingerprintOf(testLibraries())

	libs := testLibraries()
	libs[0].Counts[0].Count = 43
	if FingerprintOf(libs).Equal(before) {
		t.Error("count change should change the fingerprint")
	}
}

// A same-count swap (one item removed, one added) leaves totals
// untouched but moves the library's newest timestamp.
func TestFingerprintChangesOnLastAdded(t *testing.T) {
	before := FingerprintOf(testLibraries())

	libs := testLibraries()
	libs[0].LastAdded = 1700000060
	if FingerprintOf(libs).Equal(before) {
		t.Error("moved last-added timestamp should change the fingerprint")
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if !FingerprintOf(nil).Equal(FingerprintOf([]Library{})) {
		t.Error("nil and empty listings should fingerprint identically")
	}
}
