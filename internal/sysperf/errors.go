package sysperf

import "errors"

// Domain errors for the sysperf package.
var (
	// ErrNoCollectors is returned by NewManager when no collector is given.
	ErrNoCollectors = errors.New("sysperf: at least one collector is required")

	// ErrNilHandler is returned by NewManager when no handler is given.
	ErrNilHandler = errors.New("sysperf: handler is required")

	// ErrNoSample is returned when the collector produced no value.
	ErrNoSample = errors.New("sysperf: collector returned no sample")

	// ErrAllCollectorsFailed is returned by Poll when no metric could be read.
	ErrAllCollectorsFailed = errors.New("sysperf: all collectors failed")

	// ErrRejected is returned by Poll when the handler refused the snapshot.
	ErrRejected = errors.New("sysperf: snapshot rejected by handler")
)
