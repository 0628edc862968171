// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"fmt"

	"brickctl/pkg/ipcon"
)

// Bootloader function IDs of TNG modules.
const (
	FunctionTNGSetWriteFirmwarePointer = 233
	FunctionTNGWriteFirmware           = 234
	FunctionTNGCopyFirmware            = 235
	FunctionTNGReset                   = 243
)

// Status codes returned by the copy-firmware finalization.
const (
	CopyStatusOK                        = 0
	CopyStatusDeviceIdentifierIncorrect = 1
	CopyStatusMagicNumberIncorrect      = 2
	CopyStatusLengthMalformed           = 3
	CopyStatusCRCMismatch               = 4
)

// TNGBlockSize is the firmware write granularity of TNG modules.
const TNGBlockSize = 64

// TNGModule is the proxy for a TNG-generation module with its own bootloader.
type TNGModule struct {
	dev *ipcon.Device
}

// NewTNGModule creates a TNG module proxy for the base58 UID.
func NewTNGModule(uid string, conn *ipcon.Connection) (*TNGModule, error) {
	dev, err := ipcon.NewDevice(uid, conn)
	if err != nil {
		return nil, err
	}

	dev.DeclareFunction(FunctionTNGSetWriteFirmwarePointer, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionTNGWriteFirmware, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionTNGCopyFirmware, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionTNGReset, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionGetIdentity, ipcon.ResponseExpectedAlwaysTrue)

	return &TNGModule{dev: dev}, nil
}

// Device returns the underlying device proxy.
func (m *TNGModule) Device() *ipcon.Device { return m.dev }

// UIDString returns the base58 display UID.
func (m *TNGModule) UIDString() string { return m.dev.UIDString() }

// SetWriteFirmwarePointer positions the firmware write pointer.
func (m *TNGModule) SetWriteFirmwarePointer(pointer uint32) error {
	_, err := m.dev.Call(FunctionTNGSetWriteFirmwarePointer, []interface{}{pointer}, "I", 0, "")
	return err
}

// WriteFirmware writes one 64-byte block at the current pointer.
func (m *TNGModule) WriteFirmware(block []byte) (uint8, error) {
	if len(block) != TNGBlockSize {
		return 0, fmt.Errorf("devices: firmware block must be %d bytes, got %d", TNGBlockSize, len(block))
	}
	values, err := m.dev.Call(FunctionTNGWriteFirmware, []interface{}{[]uint8(block)}, "64B", 9, "B")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// CopyFirmware asks the bootloader to validate the staged image and copy it
// into place, returning the finalization status.
func (m *TNGModule) CopyFirmware() (uint8, error) {
	values, err := m.dev.Call(FunctionTNGCopyFirmware, nil, "", 9, "B")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// Reset restarts the module into the new firmware.
func (m *TNGModule) Reset() error {
	_, err := m.dev.Call(FunctionTNGReset, nil, "", 0, "")
	return err
}
