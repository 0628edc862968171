// SPDX-License-Identifier: Apache-2.0

// Package flash drives firmware transfers to Bricks and Bricklets through
// three bootloader state machines: classic EEPROM plugins written through
// the parent Brick, co-processor bootloaders with page-level retry and
// zero-page skipping, and TNG staging with copy-firmware finalization.
//
// All operations are synchronous: the calling goroutine is dedicated to the
// transfer. Progress is reported through a callback carrying a monotonic
// byte counter; cancellation is cooperative via context and only takes
// effect at chunk or page boundaries, because interrupting a partial page
// write corrupts the device's flash state.
package flash

import (
	"context"
	"fmt"

	"brickctl/pkg/devices"
	"brickctl/pkg/ipcon"
)

// ClassicParent names the parent Brick and port a classic Bricklet hangs
// off; the classic protocol flashes through the parent, not the Bricklet.
type ClassicParent struct {
	UID  string
	Port byte
}

// Flash runs one complete transfer for the device with the given UID,
// dispatching on the bootloader family. For FamilyClassic the parent must
// be given; the other families talk to the device directly. Returns the
// number of bytes written and the terminal outcome.
func Flash(ctx context.Context, conn *ipcon.Connection, family devices.Family,
	uid string, image []byte, parent *ClassicParent, opts ...Option) (int, error) {

	switch family {
	case devices.FamilyClassic:
		if parent == nil {
			return 0, fmt.Errorf("flash: classic Bricklet %s needs its parent Brick and port", uid)
		}
		brick, err := devices.NewBrick(parent.UID, conn)
		if err != nil {
			return 0, err
		}
		defer conn.ReleaseDevice(brick.Device())
		return FlashClassic(ctx, brick, parent.Port, image, opts...)

	case devices.FamilyCOMCU:
		bricklet, err := devices.NewCOMCUBricklet(uid, conn)
		if err != nil {
			return 0, err
		}
		defer conn.ReleaseDevice(bricklet.Device())
		return FlashCOMCU(ctx, bricklet, image, opts...)

	case devices.FamilyTNG:
		module, err := devices.NewTNGModule(uid, conn)
		if err != nil {
			return 0, err
		}
		defer conn.ReleaseDevice(module.Device())
		return FlashTNG(ctx, module, image, opts...)
	}

	return 0, fmt.Errorf("flash: unknown bootloader family %q", family)
}
