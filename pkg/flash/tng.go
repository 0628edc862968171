// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"context"
	"fmt"

	"brickctl/pkg/devices"
)

// TNGTarget is a TNG module's bootloader surface.
type TNGTarget interface {
	SetWriteFirmwarePointer(pointer uint32) error
	WriteFirmware(block []byte) (uint8, error)
	CopyFirmware() (uint8, error)
	Reset() error
}

// FlashTNG writes a firmware image into a TNG module's staging area block by
// block, then asks the bootloader to validate and copy it into place. Only a
// clean copy status resets the module into the new firmware. Returns the
// number of firmware bytes written (after padding).
func FlashTNG(ctx context.Context, target TNGTarget, firmware []byte, opts ...Option) (int, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Pad to the write granularity so the final block is full.
	if rest := len(firmware) % devices.TNGBlockSize; rest != 0 {
		firmware = append(firmware[:len(firmware):len(firmware)], make([]byte, devices.TNGBlockSize-rest)...)
	}

	cfg.report(Progress{Phase: PhaseWriting, Total: len(firmware), Attempt: 1})

	written := 0
	for position := 0; position < len(firmware); position += devices.TNGBlockSize {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("flash: cancelled: %w", err)
		}

		block := firmware[position : position+devices.TNGBlockSize]
		if err := writeTNGBlock(target, uint32(position), block); err != nil {
			return written, fmt.Errorf("flash: write firmware block at offset %d: %w", position, err)
		}
		written += devices.TNGBlockSize
		cfg.report(Progress{Phase: PhaseWriting, Written: written, Total: len(firmware), Attempt: 1})
	}

	cfg.report(Progress{Phase: PhaseFinalizing, Written: written, Total: len(firmware), Attempt: 1})

	status, err := target.CopyFirmware()
	if err != nil {
		return written, fmt.Errorf("flash: copy firmware: %w", err)
	}
	if status != devices.CopyStatusOK {
		return written, &CopyError{Status: status}
	}

	if err := target.Reset(); err != nil {
		return written, fmt.Errorf("flash: reset into new firmware: %w", err)
	}

	cfg.report(Progress{Phase: PhaseComplete, Written: written, Total: len(firmware), Attempt: 1})
	return written, nil
}

// writeTNGBlock writes one block, retrying once silently; the TNG bootloader
// drops the odd request under load.
func writeTNGBlock(target TNGTarget, pointer uint32, block []byte) error {
	if err := writeTNGBlockOnce(target, pointer, block); err != nil {
		return writeTNGBlockOnce(target, pointer, block)
	}
	return nil
}

func writeTNGBlockOnce(target TNGTarget, pointer uint32, block []byte) error {
	if err := target.SetWriteFirmwarePointer(pointer); err != nil {
		return err
	}
	_, err := target.WriteFirmware(block)
	return err
}
