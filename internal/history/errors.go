package history

import "errors"

var (
	// ErrNilData is returned when a nil item is recorded.
	ErrNilData = errors.New("history: data is nil")

	// ErrNameRequired is returned by the per-name queries for an empty name.
	ErrNameRequired = errors.New("history: name is required")
)
