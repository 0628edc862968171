// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestPacketMarshalHeader(t *testing.T) {
	p := &Packet{
		UID:              0x12345678,
		FunctionID:       246,
		SequenceNumber:   5,
		ResponseExpected: true,
		Payload:          []byte{0xAA, 0xBB},
	}
	buf, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := []byte{
		0x78, 0x56, 0x34, 0x12, // uid, little-endian
		10,          // length
		246,         // function id
		0x05 | 0x10, // sequence number + response-expected flag
		0,           // error code
		0xAA, 0xBB,
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("Marshal = % x, want % x", buf, want)
	}
}

func TestPacketMarshalParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"request", Packet{UID: 42, FunctionID: 1, SequenceNumber: 15, ResponseExpected: true, Payload: []byte{1, 2, 3}}},
		{"fire and forget", Packet{UID: 42, FunctionID: 235, SequenceNumber: 3}},
		{"callback", Packet{UID: 7, FunctionID: 253, Payload: make([]byte, 26)}},
		{"error response", Packet{UID: 9, FunctionID: 4, SequenceNumber: 1, ErrorCode: ErrorCodeNotSupported}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.pkt.Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := ParsePacket(buf)
			if err != nil {
				t.Fatalf("ParsePacket: %v", err)
			}
			if got.UID != tt.pkt.UID || got.FunctionID != tt.pkt.FunctionID ||
				got.SequenceNumber != tt.pkt.SequenceNumber ||
				got.ResponseExpected != tt.pkt.ResponseExpected ||
				got.ErrorCode != tt.pkt.ErrorCode ||
				!bytes.Equal(got.Payload, tt.pkt.Payload) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.pkt)
			}
		})
	}
}

func TestPacketMarshalRejectsOversizedPayload(t *testing.T) {
	p := &Packet{UID: 1, FunctionID: 1, Payload: make([]byte, MaxPayloadSize+1)}
	if _, err := p.Marshal(); err == nil {
		t.Fatal("Marshal accepted a payload over MaxPayloadSize")
	}
}

func TestIsCallback(t *testing.T) {
	if !(&Packet{SequenceNumber: 0}).IsCallback() {
		t.Error("sequence number 0 should be a callback")
	}
	if (&Packet{SequenceNumber: 1}).IsCallback() {
		t.Error("sequence number 1 should not be a callback")
	}
}

func TestParsePacketCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short buffer", []byte{1, 2, 3}},
		{"declared length disagrees", []byte{0, 0, 0, 0, 12, 1, 0, 0}},
		{"declared length too small", []byte{0, 0, 0, 0, 4, 1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePacket(tt.data)
			var corrupt *CorruptPacketError
			if !errors.As(err, &corrupt) {
				t.Errorf("error = %v, want *CorruptPacketError", err)
			}
		})
	}
}

func TestReadPacket(t *testing.T) {
	pkt := &Packet{UID: 99, FunctionID: 255, SequenceNumber: 2, ResponseExpected: true, Payload: []byte{0xDE, 0xAD}}
	buf, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// Two packets back to back must come out one at a time.
	r := bytes.NewReader(append(append([]byte{}, buf...), buf...))
	for i := 0; i < 2; i++ {
		got, err := ReadPacket(r)
		if err != nil {
			t.Fatalf("ReadPacket #%d: %v", i, err)
		}
		if got.UID != 99 || !bytes.Equal(got.Payload, []byte{0xDE, 0xAD}) {
			t.Errorf("ReadPacket #%d = %+v", i, got)
		}
	}
	if _, err := ReadPacket(r); err != io.EOF {
		t.Errorf("ReadPacket at EOF = %v, want io.EOF", err)
	}
}

func TestReadPacketTruncated(t *testing.T) {
	pkt := &Packet{UID: 1, FunctionID: 1, Payload: []byte{1, 2, 3, 4}}
	buf, _ := pkt.Marshal()

	_, err := ReadPacket(bytes.NewReader(buf[:len(buf)-2]))
	if err != io.ErrUnexpectedEOF {
		t.Errorf("ReadPacket on truncated payload = %v, want io.ErrUnexpectedEOF", err)
	}
}
