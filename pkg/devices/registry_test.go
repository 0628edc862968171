// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"testing"

	"brickctl/pkg/ipcon"
)

func TestClassifyFamily(t *testing.T) {
	tests := []struct {
		deviceIdentifier uint16
		want             Family
	}{
		{11, FamilyClassic},   // Master Brick
		{201, FamilyTNG},      // TNG window lower bound
		{240, FamilyTNG},      // TNG window upper bound
		{241, FamilyClassic},  // just past the TNG window
		{2113, FamilyCOMCU},   // co-processor Bricklet
		{2000, FamilyCOMCU},   // co-processor lower bound
		{1999, FamilyClassic}, // just below the co-processor range
	}
	for _, tt := range tests {
		if got := ClassifyFamily(tt.deviceIdentifier); got != tt.want {
			t.Errorf("ClassifyFamily(%d) = %v, want %v", tt.deviceIdentifier, got, tt.want)
		}
	}
}

func TestParseFamily(t *testing.T) {
	for _, s := range []string{"classic", "comcu", "tng"} {
		f, ok := ParseFamily(s)
		if !ok || f.String() != s {
			t.Errorf("ParseFamily(%q) = %v, %v", s, f, ok)
		}
	}
	if _, ok := ParseFamily("bogus"); ok {
		t.Error("ParseFamily accepted an unknown family")
	}
}

func TestRegistryApply(t *testing.T) {
	r := NewRegistry()

	r.Apply(ipcon.EnumerateEvent{
		UID:              "abc",
		ConnectedUID:     "xyZ",
		Position:         'b',
		DeviceIdentifier: 2113,
		EnumerationType:  ipcon.EnumerationTypeAvailable,
	})
	r.Apply(ipcon.EnumerateEvent{
		UID:              "xyZ",
		DeviceIdentifier: 11,
		EnumerationType:  ipcon.EnumerationTypeConnected,
	})

	info, ok := r.Get("abc")
	if !ok {
		t.Fatal("device abc missing from registry")
	}
	if info.Family != FamilyCOMCU || info.ConnectedUID != "xyZ" || info.Position != 'b' {
		t.Errorf("entry = %+v", info)
	}

	list := r.List()
	if len(list) != 2 || list[0].UID != "abc" || list[1].UID != "xyZ" {
		t.Errorf("list = %+v", list)
	}

	// Disconnect removes the entry; re-announcing upserts.
	r.Apply(ipcon.EnumerateEvent{UID: "abc", EnumerationType: ipcon.EnumerationTypeDisconnected})
	if _, ok := r.Get("abc"); ok {
		t.Error("disconnected device still in registry")
	}
	if len(r.List()) != 1 {
		t.Errorf("list = %+v", r.List())
	}
}
