package actuation

import "errors"

// Domain errors for the actuation package.
var (
	// ErrDuplicateActuator is returned by Register when the type ID is taken.
	ErrDuplicateActuator = errors.New("actuation: actuator type already registered")

	// ErrNilActuator is returned by Register for a nil actuator.
	ErrNilActuator = errors.New("actuation: actuator is nil")

	// ErrActuatorPanic wraps a panic raised by an actuator.
	ErrActuatorPanic = errors.New("actuation: actuator panicked")
)
