// SPDX-License-Identifier: Apache-2.0

package ipcon

import "brickctl/pkg/wire"

// Broadcast enumeration function and callback IDs, shared by every device.
const (
	FunctionEnumerate = 254
	CallbackEnumerate = 253
)

const enumerateFormat = "8s 8s c 3B 3B H B"

// Enumeration types reported in the enumerate callback.
const (
	EnumerationTypeAvailable    = 0
	EnumerationTypeConnected    = 1
	EnumerationTypeDisconnected = 2
)

// EnumerateEvent describes one device announced by the stack.
type EnumerateEvent struct {
	UID              string
	ConnectedUID     string
	Position         byte
	HardwareVersion  [3]uint8
	FirmwareVersion  [3]uint8
	DeviceIdentifier uint16
	EnumerationType  uint8
}

// Enumerate broadcasts an enumeration request. Every device in the stack
// answers with an enumerate callback; register a sink first.
func (c *Connection) Enumerate() error {
	if c.isClosed() {
		return ErrNotConnected
	}

	pkt := &wire.Packet{UID: wire.UIDBroadcast, FunctionID: FunctionEnumerate}
	buf, err := pkt.Marshal()
	if err != nil {
		return err
	}
	return c.write(buf)
}

// RegisterEnumerateCallback installs the single sink for enumerate
// callbacks, replacing any previous one; nil removes it.
func (c *Connection) RegisterEnumerateCallback(sink func(EnumerateEvent)) {
	c.mu.Lock()
	c.enumerateSink = sink
	c.mu.Unlock()
}

func (c *Connection) dispatchEnumerate(pkt *wire.Packet) {
	c.mu.Lock()
	sink := c.enumerateSink
	c.mu.Unlock()

	if sink == nil {
		return
	}

	values, err := wire.Unmarshal(enumerateFormat, pkt.Payload)
	if err != nil {
		c.logError("dropping malformed enumerate callback", "err", err)
		return
	}

	ev := EnumerateEvent{
		UID:              values[0].(string),
		ConnectedUID:     values[1].(string),
		Position:         values[2].(byte),
		DeviceIdentifier: values[5].(uint16),
		EnumerationType:  values[6].(uint8),
	}
	copy(ev.HardwareVersion[:], values[3].([]uint8))
	copy(ev.FirmwareVersion[:], values[4].([]uint8))

	c.enqueue(func() { sink(ev) })
}
