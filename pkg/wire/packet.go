// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"io"
)

// Packet represents one wire unit, request, response or callback.
type Packet struct {
	UID              uint32
	FunctionID       uint8
	SequenceNumber   uint8 // 0 for callbacks and fire-and-forget requests
	ResponseExpected bool
	ErrorCode        uint8 // set only on responses
	Payload          []byte
}

// IsCallback returns true if the packet carries no correlation, i.e. it was
// sent unsolicited by a device.
func (p *Packet) IsCallback() bool {
	return p.SequenceNumber == 0
}

// Marshal serializes the packet into wire format. The length field is derived
// from the payload; payloads over MaxPayloadSize are rejected.
func (p *Packet) Marshal() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, &FormatError{Reason: "payload too large", Got: len(p.Payload), Want: MaxPayloadSize}
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], p.UID)
	buf[4] = uint8(HeaderSize + len(p.Payload))
	buf[5] = p.FunctionID

	seq := p.SequenceNumber & sequenceNumberMask
	if p.ResponseExpected {
		seq |= responseExpectedFlag
	}
	buf[6] = seq
	buf[7] = p.ErrorCode & errorCodeMask

	copy(buf[HeaderSize:], p.Payload)
	return buf, nil
}

// ParsePacket parses a complete packet from data. The declared length must
// agree exactly with the buffer size.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, &CorruptPacketError{Declared: len(data), Actual: len(data)}
	}

	declared := int(data[4])
	if declared != len(data) || declared < HeaderSize || declared > MaxPacketSize {
		return nil, &CorruptPacketError{Declared: declared, Actual: len(data)}
	}

	p := &Packet{
		UID:              binary.LittleEndian.Uint32(data[0:4]),
		FunctionID:       data[5],
		SequenceNumber:   data[6] & sequenceNumberMask,
		ResponseExpected: data[6]&responseExpectedFlag != 0,
		ErrorCode:        data[7] & errorCodeMask,
	}

	if declared > HeaderSize {
		p.Payload = make([]byte, declared-HeaderSize)
		copy(p.Payload, data[HeaderSize:])
	}
	return p, nil
}

// ReadPacket reads exactly one packet from r: the fixed header first, then
// the payload the header declares. A short or failed read is returned as-is
// so the caller can tell connection loss apart from protocol corruption.
func ReadPacket(r io.Reader) (*Packet, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	declared := int(header[4])
	if declared < HeaderSize || declared > MaxPacketSize {
		return nil, &CorruptPacketError{Declared: declared, Actual: HeaderSize}
	}

	buf := header
	if declared > HeaderSize {
		buf = append(buf, make([]byte, declared-HeaderSize)...)
		if _, err := io.ReadFull(r, buf[HeaderSize:]); err != nil {
			return nil, err
		}
	}
	return ParsePacket(buf)
}
