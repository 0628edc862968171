// SPDX-License-Identifier: Apache-2.0

// Package wire implements the framed binary packet format spoken between a
// host and a stack of Bricks and Bricklets through the gateway daemon.
//
// Every packet starts with a fixed 8-byte header followed by up to 64 bytes
// of function-specific payload. Payload layouts are described by compact
// format strings of primitive type tags (see Marshal and Unmarshal). The
// package is pure: no I/O beyond ReadPacket, no retries, deterministic.
package wire

// Packet framing limits.
const (
	HeaderSize     = 8
	MaxPayloadSize = 64
	MaxPacketSize  = HeaderSize + MaxPayloadSize
)

// Header flag layout. The low 4 bits of the sequence byte carry the sequence
// number, bit 4 carries the response-expected flag; the remaining bits are
// reserved. The low 2 bits of the second flag byte carry the error code on
// responses.
const (
	sequenceNumberMask   = 0x0F
	responseExpectedFlag = 0x10
	errorCodeMask        = 0x03
)

// Sequence numbers rotate through 1..15. 0 marks packets that carry no
// correlation: callbacks and fire-and-forget requests.
const (
	SequenceNumberMin = 1
	SequenceNumberMax = 15
)

// Error codes carried in response headers.
const (
	ErrorCodeOK               = 0
	ErrorCodeInvalidParameter = 1
	ErrorCodeNotSupported     = 2
	ErrorCodeUnknown          = 3
)

// UIDBroadcast addresses all devices in a stack (enumeration).
const UIDBroadcast uint32 = 0
