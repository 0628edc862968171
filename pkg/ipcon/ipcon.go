// SPDX-License-Identifier: Apache-2.0

// Package ipcon implements the connection to a gateway daemon: it owns one
// transport, runs a single receive loop, and routes every inbound packet to
// either a waiting request, a registered callback sink, or the drop log.
//
// A Connection multiplexes all devices of a stack over one stream. Requests
// are correlated by the (uid, function, sequence number) triple; callbacks
// are delivered from a dedicated dispatch goroutine so a slow sink can never
// stall packet reception. Connection loss is terminal: every blocked and
// every subsequent call fails with ErrNotConnected, and reconnecting means
// creating a fresh Connection.
package ipcon

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"brickctl/pkg/wire"
)

// DefaultTimeout is the default wait for a correlated response.
const DefaultTimeout = 2500 * time.Millisecond

const callbackQueueSize = 128

// Logger is an optional logging interface, satisfied by any structured
// logging frontend the application carries.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Option is a functional option for configuring a Connection.
type Option func(*Connection)

// WithTimeout sets the response timeout for all requests on the connection.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Connection) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets a logger for dropped-packet and teardown diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithPacketTap installs an observer that sees every inbound packet before
// dispatch. The tap runs on the receive goroutine and must return quickly.
func WithPacketTap(tap func(*wire.Packet)) Option {
	return func(c *Connection) {
		c.tap = tap
	}
}

type pendingKey struct {
	uid        uint32
	functionID uint8
	seq        uint8
}

// Connection owns one transport and one receive loop. Multiple devices share
// a single Connection; it must be created with NewConnection or Dial.
type Connection struct {
	transport io.ReadWriteCloser
	timeout   time.Duration
	logger    Logger
	tap       func(*wire.Packet)

	writeMu sync.Mutex // serializes packet transmission
	seq     atomic.Uint32

	mu            sync.Mutex
	pending       map[pendingKey]chan *wire.Packet
	devices       map[uint32]*Device
	enumerateSink func(EnumerateEvent)
	closed        bool

	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewConnection wraps an established transport (TCP socket, WebSocket
// adapter, in-memory pipe) and starts the receive and dispatch loops.
func NewConnection(transport io.ReadWriteCloser, opts ...Option) *Connection {
	c := &Connection{
		transport: transport,
		timeout:   DefaultTimeout,
		pending:   make(map[pendingKey]chan *wire.Packet),
		devices:   make(map[uint32]*Device),
		events:    make(chan func(), callbackQueueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.recvLoop()
	go c.dispatchLoop()
	return c
}

// Dial connects to a gateway daemon over TCP.
func Dial(addr string, opts ...Option) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ipcon: dial %s: %w", addr, err)
	}
	return NewConnection(conn, opts...), nil
}

// Close tears the connection down. All blocked and subsequent requests fail
// with ErrNotConnected.
func (c *Connection) Close() error {
	c.shutdown()
	return nil
}

// nextSequenceNumber allocates from the connection-scoped counter, wrapping
// through 1..15. 0 is reserved for fire-and-forget and callbacks.
func (c *Connection) nextSequenceNumber() uint8 {
	n := c.seq.Add(1)
	return uint8((n-1)%wire.SequenceNumberMax) + 1
}

// SendRequest encodes and transmits one request for dev and, if the device's
// policy expects a response for functionID, blocks until the correlated
// response arrives or the timeout elapses. The decoded response values are
// returned; fire-and-forget requests return nil immediately after the write.
func (c *Connection) SendRequest(dev *Device, functionID uint8, values []interface{},
	requestFormat string, responseLength int, responseFormat string) ([]interface{}, error) {

	if c.isClosed() {
		return nil, ErrNotConnected
	}

	payload, err := wire.Marshal(requestFormat, values)
	if err != nil {
		return nil, err
	}

	responseExpected := dev.responseExpectedFor(functionID)

	var (
		seq  uint8
		slot chan *wire.Packet
		key  pendingKey
	)
	if responseExpected {
		seq = c.nextSequenceNumber()
		key = pendingKey{uid: dev.uid, functionID: functionID, seq: seq}
		slot = make(chan *wire.Packet, 1)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrNotConnected
		}
		c.pending[key] = slot
		c.mu.Unlock()
	}

	pkt := &wire.Packet{
		UID:              dev.uid,
		FunctionID:       functionID,
		SequenceNumber:   seq,
		ResponseExpected: responseExpected,
		Payload:          payload,
	}
	buf, err := pkt.Marshal()
	if err != nil {
		if responseExpected {
			c.removePending(key)
		}
		return nil, err
	}

	if err := c.write(buf); err != nil {
		if responseExpected {
			c.removePending(key)
		}
		return nil, err
	}

	if !responseExpected {
		return nil, nil
	}

	select {
	case resp := <-slot:
		if resp.ErrorCode != wire.ErrorCodeOK {
			return nil, &DeviceError{UID: dev.uid, FunctionID: functionID, Code: resp.ErrorCode}
		}
		if responseLength > 0 && len(resp.Payload) != responseLength-wire.HeaderSize {
			return nil, &wire.CorruptPacketError{Declared: responseLength, Actual: wire.HeaderSize + len(resp.Payload)}
		}
		if responseFormat == "" {
			return nil, nil
		}
		return wire.Unmarshal(responseFormat, resp.Payload)

	case <-time.After(c.timeout):
		c.removePending(key)
		return nil, ErrTimeout

	case <-c.done:
		return nil, ErrNotConnected
	}
}

// write serializes access to the transport. A failed write means the link is
// gone; the connection is torn down so in-flight calls fail promptly.
func (c *Connection) write(buf []byte) error {
	c.writeMu.Lock()
	_, err := c.transport.Write(buf)
	c.writeMu.Unlock()
	if err != nil {
		c.shutdown()
		return fmt.Errorf("%w: write: %v", ErrNotConnected, err)
	}
	return nil
}

func (c *Connection) recvLoop() {
	defer close(c.events)
	for {
		pkt, err := wire.ReadPacket(c.transport)
		if err != nil {
			if !c.isClosed() {
				c.logDebug("receive loop terminated", "err", err)
			}
			c.shutdown()
			return
		}
		if c.tap != nil {
			c.tap(pkt)
		}
		c.dispatch(pkt)
	}
}

func (c *Connection) dispatchLoop() {
	for fn := range c.events {
		fn()
	}
}

// dispatch delivers one inbound packet to exactly one consumer: a pending
// request slot, a callback sink, or the drop log.
func (c *Connection) dispatch(pkt *wire.Packet) {
	if pkt.IsCallback() {
		if pkt.FunctionID == CallbackEnumerate {
			c.dispatchEnumerate(pkt)
			return
		}
		c.dispatchCallback(pkt)
		return
	}

	key := pendingKey{uid: pkt.UID, functionID: pkt.FunctionID, seq: pkt.SequenceNumber}

	c.mu.Lock()
	slot, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		// Late response after a timed-out caller gave up, or a response
		// nobody asked for. Either way it has no consumer.
		c.logDebug("dropping orphan response",
			"uid", Base58Encode(pkt.UID), "function", pkt.FunctionID, "seq", pkt.SequenceNumber)
		return
	}
	slot <- pkt
}

func (c *Connection) dispatchCallback(pkt *wire.Packet) {
	c.mu.Lock()
	dev := c.devices[pkt.UID]
	c.mu.Unlock()

	if dev == nil {
		c.logDebug("dropping callback for unknown device", "uid", Base58Encode(pkt.UID), "function", pkt.FunctionID)
		return
	}

	sink, format := dev.callbackFor(pkt.FunctionID)
	if sink == nil {
		return
	}

	values, err := wire.Unmarshal(format, pkt.Payload)
	if err != nil {
		c.logError("dropping malformed callback",
			"uid", dev.uidString, "function", pkt.FunctionID, "err", err)
		return
	}
	c.enqueue(func() { sink(values) })
}

func (c *Connection) enqueue(fn func()) {
	select {
	case c.events <- fn:
	default:
		c.logError("callback queue full, dropping event")
	}
}

func (c *Connection) removePending(key pendingKey) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *Connection) addDevice(dev *Device) {
	c.mu.Lock()
	c.devices[dev.uid] = dev
	c.mu.Unlock()
}

// ReleaseDevice removes a device registration, e.g. after it disappeared
// from the stack. Safe to call repeatedly.
func (c *Connection) ReleaseDevice(dev *Device) {
	c.mu.Lock()
	if c.devices[dev.uid] == dev {
		delete(c.devices, dev.uid)
	}
	c.mu.Unlock()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) shutdown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.pending = make(map[pendingKey]chan *wire.Packet)
		c.mu.Unlock()

		close(c.done)
		c.transport.Close()
	})
}

func (c *Connection) logDebug(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Connection) logError(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, keysAndValues...)
	}
}
