// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"bytes"
	"net"
	"testing"

	"brickctl/pkg/ipcon"
	"brickctl/pkg/wire"
)

// fakeStack answers device requests on the far end of a net.Pipe.
type fakeStack struct {
	conn net.Conn
}

func newFakeStack(t *testing.T) (*ipcon.Connection, *fakeStack) {
	t.Helper()
	client, server := net.Pipe()
	c := ipcon.NewConnection(client)
	t.Cleanup(func() { c.Close() })
	return c, &fakeStack{conn: server}
}

// respond reads one request and answers it with the given payload.
func (s *fakeStack) respond(t *testing.T, payload []byte) *wire.Packet {
	t.Helper()
	req, err := wire.ReadPacket(s.conn)
	if err != nil {
		t.Errorf("stack read: %v", err)
		return nil
	}
	if req.ResponseExpected {
		resp := &wire.Packet{
			UID:            req.UID,
			FunctionID:     req.FunctionID,
			SequenceNumber: req.SequenceNumber,
			Payload:        payload,
		}
		buf, _ := resp.Marshal()
		if _, err := s.conn.Write(buf); err != nil {
			t.Errorf("stack write: %v", err)
		}
	}
	return req
}

func TestBrickWriteBrickletPlugin(t *testing.T) {
	conn, stack := newFakeStack(t)
	brick, err := NewBrick("abc", conn)
	if err != nil {
		t.Fatalf("NewBrick: %v", err)
	}
	if err := brick.SetResponseExpected(FunctionWriteBrickletPlugin, true); err != nil {
		t.Fatalf("SetResponseExpected: %v", err)
	}

	chunk := make([]byte, PluginChunkSize)
	chunk[0], chunk[31] = 0xAB, 0xCD

	got := make(chan *wire.Packet, 1)
	go func() { got <- stack.respond(t, nil) }()

	if err := brick.WriteBrickletPlugin('b', 3, chunk); err != nil {
		t.Fatalf("WriteBrickletPlugin: %v", err)
	}

	req := <-got
	if req.FunctionID != FunctionWriteBrickletPlugin {
		t.Errorf("function = %d", req.FunctionID)
	}
	if req.Payload[0] != 'b' || req.Payload[1] != 3 {
		t.Errorf("port/offset = %d/%d", req.Payload[0], req.Payload[1])
	}
	if !bytes.Equal(req.Payload[2:], chunk) {
		t.Errorf("chunk payload = % x", req.Payload[2:])
	}
}

func TestBrickWriteBrickletPluginRejectsBadChunk(t *testing.T) {
	conn, _ := newFakeStack(t)
	brick, err := NewBrick("abc", conn)
	if err != nil {
		t.Fatalf("NewBrick: %v", err)
	}
	if err := brick.WriteBrickletPlugin('a', 0, make([]byte, 16)); err == nil {
		t.Error("short chunk accepted")
	}
}

func TestBrickReadBrickletPlugin(t *testing.T) {
	conn, stack := newFakeStack(t)
	brick, err := NewBrick("abc", conn)
	if err != nil {
		t.Fatalf("NewBrick: %v", err)
	}

	stored := make([]byte, PluginChunkSize)
	for i := range stored {
		stored[i] = byte(i)
	}
	go func() { stack.respond(t, stored) }()

	chunk, err := brick.ReadBrickletPlugin('a', 5)
	if err != nil {
		t.Fatalf("ReadBrickletPlugin: %v", err)
	}
	if !bytes.Equal(chunk, stored) {
		t.Errorf("chunk = % x", chunk)
	}
}

func TestCOMCUBrickletSetBootloaderMode(t *testing.T) {
	conn, stack := newFakeStack(t)
	bricklet, err := NewCOMCUBricklet("xyZ", conn)
	if err != nil {
		t.Fatalf("NewCOMCUBricklet: %v", err)
	}

	got := make(chan *wire.Packet, 1)
	go func() { got <- stack.respond(t, []byte{BootloaderStatusNoChange}) }()

	status, err := bricklet.SetBootloaderMode(BootloaderModeBootloader)
	if err != nil {
		t.Fatalf("SetBootloaderMode: %v", err)
	}
	if status != BootloaderStatusNoChange {
		t.Errorf("status = %d", status)
	}

	req := <-got
	if req.FunctionID != FunctionSetBootloaderMode || req.Payload[0] != BootloaderModeBootloader {
		t.Errorf("request = %+v", req)
	}
}

func TestCOMCUBrickletFireAndForgetPointer(t *testing.T) {
	conn, stack := newFakeStack(t)
	bricklet, err := NewCOMCUBricklet("xyZ", conn)
	if err != nil {
		t.Fatalf("NewCOMCUBricklet: %v", err)
	}

	got := make(chan *wire.Packet, 1)
	go func() { got <- stack.respond(t, nil) }()

	if err := bricklet.SetWriteFirmwarePointer(0x1234); err != nil {
		t.Fatalf("SetWriteFirmwarePointer: %v", err)
	}

	req := <-got
	if req.ResponseExpected || req.SequenceNumber != 0 {
		t.Errorf("pointer write should be fire-and-forget: %+v", req)
	}
	if !bytes.Equal(req.Payload, []byte{0x34, 0x12, 0, 0}) {
		t.Errorf("pointer payload = % x", req.Payload)
	}
}

func TestTNGModuleCopyFirmware(t *testing.T) {
	conn, stack := newFakeStack(t)
	module, err := NewTNGModule("216a", conn)
	if err != nil {
		t.Fatalf("NewTNGModule: %v", err)
	}

	go func() { stack.respond(t, []byte{CopyStatusCRCMismatch}) }()

	status, err := module.CopyFirmware()
	if err != nil {
		t.Fatalf("CopyFirmware: %v", err)
	}
	if status != CopyStatusCRCMismatch {
		t.Errorf("status = %d", status)
	}
}
