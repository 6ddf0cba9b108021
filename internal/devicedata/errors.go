package devicedata

import "errors"

// Sentinel errors.
var (
	// ErrNilDispatcher is returned by NewManager without an actuator dispatcher.
	ErrNilDispatcher = errors.New("devicedata: actuator dispatcher is required")

	// ErrListenerRegistration is returned by Start when a transport refuses
	// the inbound message listener.
	ErrListenerRegistration = errors.New("devicedata: transport rejected message listener")

	// ErrRecorderPanic wraps a panic raised by a Recorder.
	ErrRecorderPanic = errors.New("devicedata: recorder panicked")
)
