package device

import "errors"

var (
	// ErrAllocation is returned when a device cannot satisfy a request.
	ErrAllocation = errors.New("device: allocation failed")
	// ErrDeviceClosed is returned by every call on a closed device.
	ErrDeviceClosed = errors.New("device: closed")
	// ErrDeviceInUse is returned by Close while allocations are outstanding.
	ErrDeviceInUse = errors.New("device: allocations outstanding")
	// ErrInvalidHandle covers double free, use after free and foreign handles.
	ErrInvalidHandle = errors.New("device: invalid memory handle")
	// ErrBounds is returned when a transfer does not fit its destination.
	ErrBounds = errors.New("device: transfer out of bounds")
	// ErrUnknownMode is returned by New for an unsupported mode.
	ErrUnknownMode = errors.New("device: unknown mode")
)
