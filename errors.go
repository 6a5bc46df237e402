package hilserial

import "errors"

// Predefined error types for robust error handling
var (
	// Operation outcomes surfaced by transports and drivers.
	ErrTimeout   = errors.New("operation timed out")
	ErrStopped   = errors.New("transport is stopped")
	ErrProtocol  = errors.New("protocol violation")
	ErrUsage     = errors.New("unrecognized command")
	ErrAssertion = errors.New("background task finished early")

	// Device-level errors.
	ErrDeviceNotFound  = errors.New("serial device not found")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")
	ErrPortClosed      = errors.New("serial port is closed")
)
