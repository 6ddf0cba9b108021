package scheduler

import "errors"

// Domain errors for the scheduler package.
var (
	// ErrAlreadyRunning is returned by Start when the runner is already running.
	ErrAlreadyRunning = errors.New("scheduler: runner already running")

	// ErrNilJob is returned by NewRunner when no job is given.
	ErrNilJob = errors.New("scheduler: job is required")

	// ErrJobPanic wraps a panic recovered from a job.
	ErrJobPanic = errors.New("scheduler: job panicked")
)
