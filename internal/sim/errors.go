package sim

import "errors"

// Domain errors for the sim package.
var (
	// ErrValueOutOfRange is returned by Activate when the set point is outside
	// the actuator's supported range.
	ErrValueOutOfRange = errors.New("sim: value out of range")

	// ErrInvalidRange is returned when a sensor is built with floor > ceiling.
	ErrInvalidRange = errors.New("sim: floor is above ceiling")
)
