// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"sort"
	"sync"

	"brickctl/pkg/ipcon"
)

// Family tags the bootloader protocol a device speaks. It is decided once
// per device at discovery time and drives dispatch in the flashing engine.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyClassic        // EEPROM plugin via the parent Brick
	FamilyCOMCU          // co-processor bootloader
	FamilyTNG            // TNG bootloader
)

func (f Family) String() string {
	switch f {
	case FamilyClassic:
		return "classic"
	case FamilyCOMCU:
		return "comcu"
	case FamilyTNG:
		return "tng"
	}
	return "unknown"
}

// ParseFamily maps the CLI spelling to a Family tag.
func ParseFamily(s string) (Family, bool) {
	switch s {
	case "classic":
		return FamilyClassic, true
	case "comcu":
		return FamilyCOMCU, true
	case "tng":
		return FamilyTNG, true
	}
	return FamilyUnknown, false
}

// ClassifyFamily derives the bootloader family from a device identifier.
// TNG modules announce identifiers in the 201..240 range, co-processor
// Bricklets report identifiers of 2000 and above, everything else flashes
// the classic way through its parent Brick.
func ClassifyFamily(deviceIdentifier uint16) Family {
	switch {
	case deviceIdentifier >= 201 && deviceIdentifier <= 240:
		return FamilyTNG
	case deviceIdentifier >= 2000:
		return FamilyCOMCU
	default:
		return FamilyClassic
	}
}

// Info is one registry entry, built from an enumerate event.
type Info struct {
	UID              string
	ConnectedUID     string
	Position         byte
	HardwareVersion  [3]uint8
	FirmwareVersion  [3]uint8
	DeviceIdentifier uint16
	Family           Family
}

// Registry is an explicit device table keyed by UID, owned by the
// application and fed from enumerate callbacks. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Info
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Info)}
}

// Apply folds one enumerate event into the registry: available/connected
// events upsert the entry, disconnect events remove it.
func (r *Registry) Apply(ev ipcon.EnumerateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.EnumerationType == ipcon.EnumerationTypeDisconnected {
		delete(r.entries, ev.UID)
		return
	}

	r.entries[ev.UID] = &Info{
		UID:              ev.UID,
		ConnectedUID:     ev.ConnectedUID,
		Position:         ev.Position,
		HardwareVersion:  ev.HardwareVersion,
		FirmwareVersion:  ev.FirmwareVersion,
		DeviceIdentifier: ev.DeviceIdentifier,
		Family:           ClassifyFamily(ev.DeviceIdentifier),
	}
}

// Get looks up a device by UID.
func (r *Registry) Get(uid string) (*Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.entries[uid]
	return info, ok
}

// List returns all entries sorted by UID.
func (r *Registry) List() []*Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Info, 0, len(r.entries))
	for _, info := range r.entries {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}
