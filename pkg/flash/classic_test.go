// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"brickctl/pkg/devices"
)

type mockBrick struct {
	responseExpected map[uint8]bool
	chunks           map[uint8][]byte
	writeCalls       int
	readCalls        int

	// tamperChunk corrupts the read-back of one chunk index; -1 disables.
	tamperChunk int
	writeErr    error
	readErr     error
}

func newMockBrick() *mockBrick {
	return &mockBrick{
		responseExpected: make(map[uint8]bool),
		chunks:           make(map[uint8][]byte),
		tamperChunk:      -1,
	}
}

func (m *mockBrick) SetResponseExpected(functionID uint8, responseExpected bool) error {
	m.responseExpected[functionID] = responseExpected
	return nil
}

func (m *mockBrick) WriteBrickletPlugin(port byte, offset uint8, chunk []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writeCalls++
	m.chunks[offset] = append([]byte{}, chunk...)
	return nil
}

func (m *mockBrick) ReadBrickletPlugin(port byte, offset uint8) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	m.readCalls++
	chunk := append([]byte{}, m.chunks[offset]...)
	if int(offset) == m.tamperChunk {
		chunk[0] ^= 0xFF
	}
	return chunk, nil
}

func fastOpts(extra ...Option) []Option {
	return append([]Option{WithChunkDelay(0), WithPollInterval(0)}, extra...)
}

func TestFlashClassic(t *testing.T) {
	brick := newMockBrick()
	plugin := make([]byte, 100)
	for i := range plugin {
		plugin[i] = byte(i)
	}

	written, err := FlashClassic(context.Background(), brick, 'a', plugin, fastOpts()...)
	if err != nil {
		t.Fatalf("FlashClassic: %v", err)
	}

	// 100 bytes round up to 4 chunks of 32, each written once and read back
	// once.
	if written != 4*devices.PluginChunkSize {
		t.Errorf("written = %d, want %d", written, 4*devices.PluginChunkSize)
	}
	if brick.writeCalls != 4 || brick.readCalls != 4 {
		t.Errorf("write/read calls = %d/%d, want 4/4", brick.writeCalls, brick.readCalls)
	}

	// The final chunk is zero-padded to full size.
	last := brick.chunks[3]
	if len(last) != devices.PluginChunkSize {
		t.Fatalf("last chunk length = %d", len(last))
	}
	if !bytes.Equal(last[:4], []byte{96, 97, 98, 99}) || !bytes.Equal(last[4:], make([]byte, 28)) {
		t.Errorf("last chunk = % x", last)
	}

	if !brick.responseExpected[devices.FunctionWriteBrickletPlugin] {
		t.Error("plugin writes were not switched to acknowledged mode")
	}
}

func TestFlashClassicSizeLimit(t *testing.T) {
	brick := newMockBrick()

	_, err := FlashClassic(context.Background(), brick, 'a', make([]byte, ClassicLimit+1), fastOpts()...)
	var sizeErr *SizeLimitError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("error = %v, want *SizeLimitError", err)
	}
	if brick.writeCalls != 0 {
		t.Errorf("%d chunks written despite oversized plugin", brick.writeCalls)
	}
}

func TestFlashClassicVerificationFailure(t *testing.T) {
	brick := newMockBrick()
	brick.tamperChunk = 2

	_, err := FlashClassic(context.Background(), brick, 'a', make([]byte, 100), fastOpts()...)
	var verErr *VerificationError
	if !errors.As(err, &verErr) {
		t.Fatalf("error = %v, want *VerificationError", err)
	}
	if verErr.Chunk != 2 {
		t.Errorf("failing chunk = %d, want 2", verErr.Chunk)
	}
}

func TestFlashClassicCancel(t *testing.T) {
	brick := newMockBrick()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FlashClassic(ctx, brick, 'a', make([]byte, 100), fastOpts()...)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if brick.writeCalls != 0 {
		t.Errorf("%d chunks written after cancellation", brick.writeCalls)
	}
}

func TestFlashClassicProgressMonotonic(t *testing.T) {
	brick := newMockBrick()

	var writing []int
	progress := func(p Progress) {
		if p.Phase == PhaseWriting {
			writing = append(writing, p.Written)
		}
	}

	if _, err := FlashClassic(context.Background(), brick, 'a', make([]byte, 100),
		fastOpts(WithProgress(progress))...); err != nil {
		t.Fatalf("FlashClassic: %v", err)
	}

	for i := 1; i < len(writing); i++ {
		if writing[i] < writing[i-1] {
			t.Fatalf("progress went backward: %v", writing)
		}
	}
	if writing[len(writing)-1] != 4*devices.PluginChunkSize {
		t.Errorf("final progress = %d", writing[len(writing)-1])
	}
}
