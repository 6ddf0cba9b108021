package data

import "errors"

// Domain errors for the data package.
var (
	// ErrEmptyPayload is returned when decoding an empty payload.
	ErrEmptyPayload = errors.New("data: empty payload")

	// ErrMalformedPayload is returned when a payload is not valid JSON for the target type.
	ErrMalformedPayload = errors.New("data: malformed payload")

	// ErrNilData is returned when encoding a nil value.
	ErrNilData = errors.New("data: nil value")

	// ErrUnknownResource is returned when a resource name does not match the known set.
	ErrUnknownResource = errors.New("data: unknown resource")
)
