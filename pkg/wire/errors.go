// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// FormatError indicates that values and a payload format string disagree:
// wrong value count, wrong type, out-of-range length, or a malformed format
// token.
type FormatError struct {
	Format string
	Reason string
	Got    int
	Want   int
}

func (e *FormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("wire: format %q: %s (got %d, want %d)", e.Format, e.Reason, e.Got, e.Want)
	}
	return fmt.Sprintf("wire: %s (got %d, want %d)", e.Reason, e.Got, e.Want)
}

// CorruptPacketError indicates that a packet's declared length disagrees with
// the bytes actually present.
type CorruptPacketError struct {
	Declared int
	Actual   int
}

func (e *CorruptPacketError) Error() string {
	return fmt.Sprintf("wire: corrupt packet: declared length %d, have %d bytes", e.Declared, e.Actual)
}
