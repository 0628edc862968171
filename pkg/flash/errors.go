// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"errors"
	"fmt"
)

// ErrMagicNotFound indicates the firmware image lacks the boundary marker
// the co-processor bootloader requires.
var ErrMagicNotFound = errors.New("flash: firmware magic marker not found")

// SizeLimitError indicates a plugin or image exceeds the target's flash
// capacity. Raised before any device I/O.
type SizeLimitError struct {
	Size  int
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("flash: image is %d bytes, device limit is %d bytes", e.Size, e.Limit)
}

// ContainerError indicates the firmware artifact itself is unusable:
// unreadable archive, missing firmware entry, bad length.
type ContainerError struct {
	Reason string
	Err    error
}

func (e *ContainerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flash: %s: %v", e.Reason, e.Err)
	}
	return "flash: " + e.Reason
}

func (e *ContainerError) Unwrap() error { return e.Err }

// VerificationError indicates a read-back chunk did not match what was
// written. Never retried automatically.
type VerificationError struct {
	Chunk int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("flash: verification failed at chunk %d", e.Chunk)
}

// ModeTimeoutError indicates the device never confirmed a bootloader mode
// transition within the polling budget.
type ModeTimeoutError struct {
	Mode uint8
}

func (e *ModeTimeoutError) Error() string {
	return fmt.Sprintf("flash: device did not enter %s mode in 2.5 seconds", modeName(e.Mode))
}

// ModeRejectedError indicates the device refused a bootloader mode
// transition with a terminal status code.
type ModeRejectedError struct {
	Status uint8
}

func (e *ModeRejectedError) Error() string {
	return "flash: could not change from bootloader mode to firmware mode: " + bootloaderStatusString(e.Status)
}

// CRCMismatchError indicates every write attempt ended in a CRC-mismatch
// status from the bootloader.
type CRCMismatchError struct {
	Attempts int
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("flash: firmware CRC mismatch after %d attempts", e.Attempts)
}

// CopyError indicates the TNG finalization rejected the staged image.
type CopyError struct {
	Status uint8
}

func (e *CopyError) Error() string {
	return "flash: could not flash firmware: " + copyStatusString(e.Status)
}

func modeName(mode uint8) string {
	if mode == 0 {
		return "bootloader"
	}
	return "firmware"
}

// Status codes from the co-processor mode change, in their reporting form.
func bootloaderStatusString(status uint8) string {
	switch status {
	case 1:
		return "Invalid mode (Error 1)"
	case 3:
		return "Entry function not present (Error 3)"
	case 4:
		return "Device identifier incorrect (Error 4)"
	case 5:
		return "CRC Mismatch (Error 5)"
	default:
		return fmt.Sprintf("Error %d", status)
	}
}

// Status codes from the TNG copy-firmware finalization.
func copyStatusString(status uint8) string {
	switch status {
	case 1:
		return "Device identifier incorrect (Error 1)"
	case 2:
		return "Magic number incorrect (Error 2)"
	case 3:
		return "Length malformed (Error 3)"
	case 4:
		return "CRC mismatch (Error 4)"
	default:
		return fmt.Sprintf("Error %d", status)
	}
}
