package sensing

import "errors"

// Domain errors for the sensing package.
var (
	// ErrNoSensors is returned by NewManager when no sensor is given.
	ErrNoSensors = errors.New("sensing: at least one sensor is required")

	// ErrNilHandler is returned by NewManager when no handler is given.
	ErrNilHandler = errors.New("sensing: handler is required")

	// ErrDuplicateSensor is returned by NewManager when two sensors share a name.
	ErrDuplicateSensor = errors.New("sensing: duplicate sensor name")

	// ErrPollFailed is returned by Poll when at least one sensor failed.
	ErrPollFailed = errors.New("sensing: poll incomplete")
)
