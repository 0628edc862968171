// SPDX-License-Identifier: Apache-2.0

package ipcon

import (
	"errors"
	"fmt"

	"brickctl/pkg/wire"
)

// ErrTimeout is returned when no matching response arrives within the
// connection's response timeout.
var ErrTimeout = errors.New("ipcon: response timeout")

// ErrNotConnected is returned for calls issued on, or in flight over, a
// connection that has been closed or has lost its transport.
var ErrNotConnected = errors.New("ipcon: not connected")

// DeviceError is a non-zero error code carried in a response header.
type DeviceError struct {
	UID        uint32
	FunctionID uint8
	Code       uint8
}

func (e *DeviceError) Error() string {
	var kind string
	switch e.Code {
	case wire.ErrorCodeInvalidParameter:
		kind = "invalid parameter"
	case wire.ErrorCodeNotSupported:
		kind = "function not supported"
	default:
		kind = "unknown error"
	}
	return fmt.Sprintf("ipcon: device %s reported %s for function %d (error code %d)",
		Base58Encode(e.UID), kind, e.FunctionID, e.Code)
}

// IsInvalidParameter reports whether err is a device error with the
// invalid-parameter code.
func IsInvalidParameter(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Code == wire.ErrorCodeInvalidParameter
}

// IsNotSupported reports whether err is a device error with the
// function-not-supported code.
func IsNotSupported(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Code == wire.ErrorCodeNotSupported
}
