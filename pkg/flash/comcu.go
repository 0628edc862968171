// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"context"
	"fmt"
	"time"

	"brickctl/pkg/devices"
)

// PageSize is the flash page size of the co-processor bootloader. Writes go
// out as four 64-byte blocks per page.
const PageSize = 256

// Zero pages may be skipped up to this budget; real images put a small data
// tail behind a large zero-filled region, and the tail must always land.
const maxSkippedZeroBytes = 20 * 1024

const (
	outerAttempts    = 2
	subWriteAttempts = 3
	maxSkippedPages  = maxSkippedZeroBytes / PageSize
)

// COMCUTarget is a Bricklet with a co-processor bootloader.
type COMCUTarget interface {
	SetBootloaderMode(mode uint8) (uint8, error)
	GetBootloaderMode() (uint8, error)
	SetWriteFirmwarePointer(pointer uint32) error
	WriteFirmware(block []byte) (uint8, error)
}

// FlashCOMCU drives the co-processor bootloader state machine: enter
// bootloader mode, write the image page by page, request firmware mode, and
// confirm the device actually runs firmware. A CRC-mismatch status from the
// mode change triggers one full re-flash without zero-page skipping, since
// garbage past the image end on fresh chips corrupts the checksum.
// Returns the number of firmware bytes written across all attempts.
func FlashCOMCU(ctx context.Context, target COMCUTarget, firmware []byte, opts ...Option) (int, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if !hasFirmwareBoundary(firmware) {
		return 0, ErrMagicNotFound
	}
	if len(firmware)%PageSize != 0 {
		return 0, &ContainerError{Reason: fmt.Sprintf("firmware size %d is not a multiple of the page size", len(firmware))}
	}

	written := 0

	for attempt := 1; attempt <= outerAttempts; attempt++ {
		// The first attempt may skip zero pages; a re-flash after a CRC
		// mismatch must overwrite everything.
		allowSkipping := attempt == 1

		cfg.report(Progress{Phase: PhaseEnterBootloader, Total: len(firmware), Attempt: attempt})

		if _, ok := setBootloaderMode(target, devices.BootloaderModeBootloader, &cfg); !ok {
			return written, &ModeTimeoutError{Mode: devices.BootloaderModeBootloader}
		}
		if !waitForBootloaderMode(target, devices.BootloaderModeBootloader, &cfg) {
			return written, &ModeTimeoutError{Mode: devices.BootloaderModeBootloader}
		}

		n, err := writePages(ctx, target, firmware, allowSkipping, attempt, written, &cfg)
		written = n
		if err != nil {
			return written, err
		}

		cfg.report(Progress{Phase: PhaseExitBootloader, Written: written, Total: len(firmware), Attempt: attempt})

		modeStatus, ok := setBootloaderMode(target, devices.BootloaderModeFirmware, &cfg)
		if !ok {
			return written, &ModeTimeoutError{Mode: devices.BootloaderModeFirmware}
		}

		switch modeStatus {
		case devices.BootloaderStatusOK, devices.BootloaderStatusNoChange:
			if !waitForBootloaderMode(target, devices.BootloaderModeFirmware, &cfg) {
				return written, &ModeTimeoutError{Mode: devices.BootloaderModeFirmware}
			}
			cfg.report(Progress{Phase: PhaseComplete, Written: written, Total: len(firmware), Attempt: attempt})
			return written, nil

		case devices.BootloaderStatusCRCMismatch:
			cfg.logInfo("firmware CRC mismatch, re-flashing whole image", "attempt", attempt)
			continue

		default:
			return written, &ModeRejectedError{Status: modeStatus}
		}
	}

	return written, &CRCMismatchError{Attempts: outerAttempts}
}

// writePages runs one full pass over the image. written carries the byte
// counter across outer attempts so progress stays monotonic.
func writePages(ctx context.Context, target COMCUTarget, firmware []byte,
	allowSkipping bool, attempt, written int, cfg *Config) (int, error) {

	// Start over budget so the first page is always written.
	skippedPages := maxSkippedPages + 1

	for position := 0; position < len(firmware); position += PageSize {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("flash: cancelled: %w", err)
		}

		page := firmware[position : position+PageSize]
		lastPage := len(firmware)-position == PageSize

		if allowSkipping && skippedPages < maxSkippedPages && !lastPage && isZeroPage(page) {
			skippedPages++
			continue
		}
		skippedPages = 0

		for blockOffset := 0; blockOffset < PageSize; blockOffset += devices.FirmwareBlockSize {
			blockStart := position + blockOffset
			block := firmware[blockStart : blockStart+devices.FirmwareBlockSize]

			// The bootloader occasionally loses a request, more often behind
			// an Isolator Bricklet. Retry the block before giving up.
			var lastErr error
			for try := 0; try < subWriteAttempts; try++ {
				if err := target.SetWriteFirmwarePointer(uint32(blockStart)); err != nil {
					lastErr = err
					continue
				}
				if _, err := target.WriteFirmware(block); err != nil {
					lastErr = err
					continue
				}
				lastErr = nil
				break
			}
			if lastErr != nil {
				return written, fmt.Errorf("flash: write firmware block at offset %d: %w", blockStart, lastErr)
			}
			written += devices.FirmwareBlockSize
		}

		cfg.report(Progress{Phase: PhaseWriting, Written: written, Total: len(firmware), Attempt: attempt})
	}
	return written, nil
}

// setBootloaderMode requests a mode change, riding out transient request
// failures with the polling budget. ok is false when every try failed.
func setBootloaderMode(target COMCUTarget, mode uint8, cfg *Config) (status uint8, ok bool) {
	for counter := 0; ; counter++ {
		status, err := target.SetBootloaderMode(mode)
		if err == nil {
			return status, true
		}
		if counter == cfg.PollAttempts {
			return 0, false
		}
		time.Sleep(cfg.PollInterval)
	}
}

// waitForBootloaderMode polls until the device reports the requested mode.
func waitForBootloaderMode(target COMCUTarget, mode uint8, cfg *Config) bool {
	for counter := 0; ; counter++ {
		current, err := target.GetBootloaderMode()
		if err == nil && current == mode {
			return true
		}
		if counter == cfg.PollAttempts {
			return false
		}
		time.Sleep(cfg.PollInterval)
	}
}

// hasFirmwareBoundary scans backward for the marker that terminates the
// regular firmware region.
func hasFirmwareBoundary(firmware []byte) bool {
	for i := len(firmware) - 13; i >= 4; i-- {
		if firmware[i] == 0x12 && firmware[i-1] == 0x34 && firmware[i-2] == 0x56 && firmware[i-3] == 0x78 {
			return true
		}
	}
	return false
}

func isZeroPage(page []byte) bool {
	for _, b := range page {
		if b != 0 {
			return false
		}
	}
	return true
}
