// SPDX-License-Identifier: Apache-2.0

package ipcon

import (
	"fmt"
	"sync"
)

// ResponseExpectedFlag is the per-function response policy of a device.
// Getters are always correlated; setters default one way or the other but
// can be overridden by the caller.
type ResponseExpectedFlag uint8

const (
	ResponseExpectedInvalid ResponseExpectedFlag = iota
	ResponseExpectedAlwaysTrue
	ResponseExpectedTrue
	ResponseExpectedFalse
)

// CallbackSink receives the decoded payload values of one callback packet.
// Sinks run on the connection's dispatch goroutine, never on a caller's.
type CallbackSink func(values []interface{})

// Device binds a UID to a shared Connection. It holds the per-function
// response policy and the per-callback payload formats; typed device
// wrappers build on top of it. A Device does not own its Connection.
type Device struct {
	uid       uint32
	uidString string
	conn      *Connection

	mu               sync.Mutex
	responseExpected map[uint8]ResponseExpectedFlag
	callbackFormats  map[uint8]string
	callbacks        map[uint8]CallbackSink
}

// NewDevice creates a device proxy for the base58 UID and registers it with
// the connection for callback routing.
func NewDevice(uid string, conn *Connection) (*Device, error) {
	wireUID, err := Base58Decode(uid)
	if err != nil {
		return nil, err
	}

	d := &Device{
		uid:              wireUID,
		uidString:        uid,
		conn:             conn,
		responseExpected: make(map[uint8]ResponseExpectedFlag),
		callbackFormats:  make(map[uint8]string),
		callbacks:        make(map[uint8]CallbackSink),
	}
	conn.addDevice(d)
	return d, nil
}

// UID returns the wire (integer) UID.
func (d *Device) UID() uint32 { return d.uid }

// UIDString returns the base58 display UID.
func (d *Device) UIDString() string { return d.uidString }

// Connection returns the shared connection the device talks through.
func (d *Device) Connection() *Connection { return d.conn }

// DeclareFunction sets the response policy for a function ID. Typed device
// wrappers call this once per function at construction time.
func (d *Device) DeclareFunction(functionID uint8, flag ResponseExpectedFlag) {
	d.mu.Lock()
	d.responseExpected[functionID] = flag
	d.mu.Unlock()
}

// DeclareCallback sets the payload format for a callback ID.
func (d *Device) DeclareCallback(callbackID uint8, format string) {
	d.mu.Lock()
	d.callbackFormats[callbackID] = format
	d.mu.Unlock()
}

// SetResponseExpected overrides the response policy for a defaulted
// function. Functions declared always-true cannot be downgraded.
func (d *Device) SetResponseExpected(functionID uint8, responseExpected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	flag, ok := d.responseExpected[functionID]
	if !ok {
		return fmt.Errorf("ipcon: device %s has no function %d", d.uidString, functionID)
	}
	if flag == ResponseExpectedAlwaysTrue && !responseExpected {
		return fmt.Errorf("ipcon: function %d of device %s always expects a response", functionID, d.uidString)
	}
	if responseExpected {
		d.responseExpected[functionID] = ResponseExpectedTrue
	} else {
		d.responseExpected[functionID] = ResponseExpectedFalse
	}
	return nil
}

func (d *Device) responseExpectedFor(functionID uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	flag := d.responseExpected[functionID]
	return flag == ResponseExpectedAlwaysTrue || flag == ResponseExpectedTrue
}

// RegisterCallback installs sink as the single handler for callbackID,
// replacing any previous one. A nil sink removes the handler. Registration
// is idempotent.
func (d *Device) RegisterCallback(callbackID uint8, sink CallbackSink) {
	d.mu.Lock()
	if sink == nil {
		delete(d.callbacks, callbackID)
	} else {
		d.callbacks[callbackID] = sink
	}
	d.mu.Unlock()
}

func (d *Device) callbackFor(callbackID uint8) (CallbackSink, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.callbacks[callbackID], d.callbackFormats[callbackID]
}

// Call issues one request through the shared connection.
func (d *Device) Call(functionID uint8, values []interface{},
	requestFormat string, responseLength int, responseFormat string) ([]interface{}, error) {
	return d.conn.SendRequest(d, functionID, values, requestFormat, responseLength, responseFormat)
}
