// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"fmt"

	"brickctl/pkg/ipcon"
)

// Bootloader function IDs of co-processor Bricklets.
const (
	FunctionSetBootloaderMode       = 235
	FunctionGetBootloaderMode       = 236
	FunctionSetWriteFirmwarePointer = 237
	FunctionWriteFirmware           = 238
	FunctionBrickletReset           = 243
)

// Bootloader modes.
const (
	BootloaderModeBootloader = 0
	BootloaderModeFirmware   = 1
)

// Status codes returned by a mode change request.
const (
	BootloaderStatusOK                        = 0
	BootloaderStatusInvalidMode               = 1
	BootloaderStatusNoChange                  = 2
	BootloaderStatusEntryFunctionNotPresent   = 3
	BootloaderStatusDeviceIdentifierIncorrect = 4
	BootloaderStatusCRCMismatch               = 5
)

// FirmwareBlockSize is the write granularity of the bootloader; four blocks
// make up one 256-byte flash page.
const FirmwareBlockSize = 64

// COMCUBricklet is the proxy for a Bricklet with its own microcontroller and
// bootloader, flashed directly rather than through the parent Brick.
type COMCUBricklet struct {
	dev *ipcon.Device
}

// NewCOMCUBricklet creates a co-processor Bricklet proxy for the base58 UID.
func NewCOMCUBricklet(uid string, conn *ipcon.Connection) (*COMCUBricklet, error) {
	dev, err := ipcon.NewDevice(uid, conn)
	if err != nil {
		return nil, err
	}

	dev.DeclareFunction(FunctionSetBootloaderMode, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionGetBootloaderMode, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionSetWriteFirmwarePointer, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionWriteFirmware, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionBrickletReset, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionGetIdentity, ipcon.ResponseExpectedAlwaysTrue)

	return &COMCUBricklet{dev: dev}, nil
}

// Device returns the underlying device proxy.
func (b *COMCUBricklet) Device() *ipcon.Device { return b.dev }

// UIDString returns the base58 display UID.
func (b *COMCUBricklet) UIDString() string { return b.dev.UIDString() }

// SetBootloaderMode asks the device to change mode and returns the status
// code of the attempt.
func (b *COMCUBricklet) SetBootloaderMode(mode uint8) (uint8, error) {
	values, err := b.dev.Call(FunctionSetBootloaderMode, []interface{}{mode}, "B", 9, "B")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// GetBootloaderMode returns the mode the device currently runs in.
func (b *COMCUBricklet) GetBootloaderMode() (uint8, error) {
	values, err := b.dev.Call(FunctionGetBootloaderMode, nil, "", 9, "B")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// SetWriteFirmwarePointer positions the firmware write pointer. The pointer
// advances in 64-byte blocks; flash commits every four blocks.
func (b *COMCUBricklet) SetWriteFirmwarePointer(pointer uint32) error {
	_, err := b.dev.Call(FunctionSetWriteFirmwarePointer, []interface{}{pointer}, "I", 0, "")
	return err
}

// WriteFirmware writes one 64-byte block at the current pointer.
func (b *COMCUBricklet) WriteFirmware(block []byte) (uint8, error) {
	if len(block) != FirmwareBlockSize {
		return 0, fmt.Errorf("devices: firmware block must be %d bytes, got %d", FirmwareBlockSize, len(block))
	}
	values, err := b.dev.Call(FunctionWriteFirmware, []interface{}{[]uint8(block)}, "64B", 9, "B")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// Reset restarts the Bricklet.
func (b *COMCUBricklet) Reset() error {
	_, err := b.dev.Call(FunctionBrickletReset, nil, "", 0, "")
	return err
}
