package httpclient

import "errors"

// Domain errors for the httpclient package.
var (
	// ErrInvalidBaseURL is returned by New for a missing or relative base URL.
	ErrInvalidBaseURL = errors.New("httpclient: base url must be absolute http(s)")

	// ErrUnexpectedStatus is returned when the peer answers outside 2xx.
	ErrUnexpectedStatus = errors.New("httpclient: unexpected status")

	// ErrClosed is returned for requests issued after Disconnect.
	ErrClosed = errors.New("httpclient: client disconnected")
)
