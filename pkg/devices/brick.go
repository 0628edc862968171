// SPDX-License-Identifier: Apache-2.0

// Package devices provides typed proxies for the device functions the tool
// needs: the generic Brick (parent of classic Bricklets), Bricklets with a
// co-processor bootloader, and TNG modules. Each proxy declares its
// response-expected policy per function and exposes plain Go methods over
// the shared connection.
package devices

import (
	"fmt"

	"brickctl/pkg/ipcon"
)

// Function IDs shared by every Brick. Plugin access sits on the same IDs
// across all Brick kinds.
const (
	FunctionWriteBrickletPlugin = 246
	FunctionReadBrickletPlugin  = 247
	FunctionBrickReset          = 243
	FunctionGetIdentity         = 255
)

// PluginChunkSize is the EEPROM plugin chunk size of classic Bricklets.
const PluginChunkSize = 32

// Brick is the proxy for a parent Brick, used to flash the EEPROM plugin of
// a classic Bricklet attached to one of its ports.
type Brick struct {
	dev *ipcon.Device
}

// NewBrick creates a Brick proxy for the base58 UID.
func NewBrick(uid string, conn *ipcon.Connection) (*Brick, error) {
	dev, err := ipcon.NewDevice(uid, conn)
	if err != nil {
		return nil, err
	}

	dev.DeclareFunction(FunctionWriteBrickletPlugin, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionReadBrickletPlugin, ipcon.ResponseExpectedAlwaysTrue)
	dev.DeclareFunction(FunctionBrickReset, ipcon.ResponseExpectedFalse)
	dev.DeclareFunction(FunctionGetIdentity, ipcon.ResponseExpectedAlwaysTrue)

	return &Brick{dev: dev}, nil
}

// Device returns the underlying device proxy.
func (b *Brick) Device() *ipcon.Device { return b.dev }

// UIDString returns the base58 display UID.
func (b *Brick) UIDString() string { return b.dev.UIDString() }

// SetResponseExpected overrides the response policy of a defaulted function.
// Flashing turns it on for plugin writes so every chunk is acknowledged.
func (b *Brick) SetResponseExpected(functionID uint8, responseExpected bool) error {
	return b.dev.SetResponseExpected(functionID, responseExpected)
}

// WriteBrickletPlugin writes one 32-byte plugin chunk to the Bricklet at
// port ('a'..'h') and chunk offset.
func (b *Brick) WriteBrickletPlugin(port byte, offset uint8, chunk []byte) error {
	if len(chunk) != PluginChunkSize {
		return fmt.Errorf("devices: plugin chunk must be %d bytes, got %d", PluginChunkSize, len(chunk))
	}
	_, err := b.dev.Call(FunctionWriteBrickletPlugin,
		[]interface{}{port, offset, []uint8(chunk)}, "c B 32B", 0, "")
	return err
}

// ReadBrickletPlugin reads back one 32-byte plugin chunk for verification.
func (b *Brick) ReadBrickletPlugin(port byte, offset uint8) ([]byte, error) {
	values, err := b.dev.Call(FunctionReadBrickletPlugin,
		[]interface{}{port, offset}, "c B", 40, "32B")
	if err != nil {
		return nil, err
	}
	return values[0].([]uint8), nil
}

// Reset restarts the Brick. Fire-and-forget; the device drops off the bus.
func (b *Brick) Reset() error {
	_, err := b.dev.Call(FunctionBrickReset, nil, "", 0, "")
	return err
}
