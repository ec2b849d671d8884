package device

import "errors"

var (
	ErrNoMotors       = errors.New("device: motor group needs at least one motor")
	ErrLengthMismatch = errors.New("device: per-motor value count does not match motor count")
	ErrUnknownGearset = errors.New("device: unknown gearset")
	ErrUnknownBrake   = errors.New("device: unknown brake mode")
	ErrBackendClosed  = errors.New("device: backend closed")
	ErrInvalidPort    = errors.New("device: invalid port")
)
