package bridge

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound      = errors.New("bridge device not found")
	ErrInvalidBaudRate     = errors.New("invalid baud rate")
	ErrInvalidDataBits     = errors.New("invalid data bits")
	ErrInvalidConfig       = errors.New("invalid bridge configuration")
	ErrAlreadyInitialized  = errors.New("bridge already initialized")
	ErrNoGPIO              = errors.New("GPIO controller not available")
	ErrPinNotSelected      = errors.New("flow control pin not selected")
	ErrInvalidRingCapacity = errors.New("ring buffer backing memory is empty")
)
