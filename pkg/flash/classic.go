// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"brickctl/pkg/devices"
)

// ClassicLimit is the EEPROM plugin capacity of classic Bricklets.
const ClassicLimit = 4084

// ClassicTarget is the parent Brick a classic Bricklet is flashed through.
type ClassicTarget interface {
	SetResponseExpected(functionID uint8, responseExpected bool) error
	WriteBrickletPlugin(port byte, offset uint8, chunk []byte) error
	ReadBrickletPlugin(port byte, offset uint8) ([]byte, error)
}

// FlashClassic writes a plugin image into the EEPROM of the classic
// Bricklet at the given port of its parent Brick, then reads every chunk
// back and byte-compares it. Returns the number of plugin bytes written.
//
// There is no per-chunk retry: any write or read failure, and any read-back
// mismatch, ends the operation. Retrying the whole operation is the
// caller's decision.
func FlashClassic(ctx context.Context, target ClassicTarget, port byte, plugin []byte, opts ...Option) (int, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(plugin) > ClassicLimit {
		return 0, &SizeLimitError{Size: len(plugin), Limit: ClassicLimit}
	}

	// Plugin writes default to fire-and-forget; flashing needs every chunk
	// acknowledged before the next one goes out.
	if err := target.SetResponseExpected(devices.FunctionWriteBrickletPlugin, true); err != nil {
		return 0, err
	}

	chunks := splitChunks(plugin, devices.PluginChunkSize)
	total := len(chunks) * devices.PluginChunkSize

	cfg.report(Progress{Phase: PhaseWriting, Written: 0, Total: total, Attempt: 1})

	written := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("flash: cancelled: %w", err)
		}
		if err := target.WriteBrickletPlugin(port, uint8(i), chunk); err != nil {
			return written, fmt.Errorf("flash: write plugin chunk %d: %w", i, err)
		}
		written += len(chunk)
		cfg.report(Progress{Phase: PhaseWriting, Written: written, Total: total, Attempt: 1})

		// EEPROM needs settle time between chunk writes.
		time.Sleep(cfg.ChunkDelay)
	}

	time.Sleep(cfg.SettleDelay)
	cfg.report(Progress{Phase: PhaseVerifying, Written: 0, Total: total, Attempt: 1})

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("flash: cancelled: %w", err)
		}
		readBack, err := target.ReadBrickletPlugin(port, uint8(i))
		if err != nil {
			return written, fmt.Errorf("flash: read plugin chunk %d back: %w", i, err)
		}
		if !bytes.Equal(readBack, chunk) {
			return written, &VerificationError{Chunk: i}
		}
		cfg.report(Progress{Phase: PhaseVerifying, Written: (i + 1) * devices.PluginChunkSize, Total: total, Attempt: 1})
		time.Sleep(cfg.ChunkDelay)
	}

	cfg.report(Progress{Phase: PhaseComplete, Written: written, Total: total, Attempt: 1})
	return written, nil
}

// splitChunks cuts data into fixed-size chunks, zero-padding the last one.
func splitChunks(data []byte, size int) [][]byte {
	var chunks [][]byte
	for offset := 0; offset < len(data); offset += size {
		chunk := make([]byte, size)
		copy(chunk, data[offset:])
		chunks = append(chunks, chunk)
	}
	return chunks
}
