package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is used when a runner is configured with a non-positive
// interval.
const DefaultInterval = 60 * time.Second

// Logger is the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Job is the work executed on every tick. The context is cancelled when the
// runner stops.
type Job func(ctx context.Context) error

// Options configures a Runner.
type Options struct {
	// Name identifies the runner in log output.
	Name string

	// Interval between ticks. Non-positive values fall back to DefaultInterval.
	Interval time.Duration

	// Clock is the time source. Defaults to RealClock.
	Clock Clock

	// Logger is optional.
	Logger Logger
}

// Runner executes a Job periodically on a single goroutine.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Runner struct {
	name     string
	interval time.Duration
	clock    Clock
	job      Job
	logger   Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	runs     atomic.Uint64
	failures atomic.Uint64
}

// NewRunner creates a stopped Runner.
//
// Parameters:
//   - opts: Name, interval, clock and logger
//   - job: Work to execute on every tick
//
// Returns:
//   - *Runner: Ready to Start
//   - error: ErrNilJob if job is nil
func NewRunner(opts Options, job Job) (*Runner, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	r := &Runner{
		name:     opts.Name,
		interval: opts.Interval,
		clock:    opts.Clock,
		job:      job,
		logger:   opts.Logger,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.clock == nil {
		r.clock = RealClock()
	}
	if r.interval <= 0 {
		r.logger.Warn("non-positive interval, using default",
			"runner", r.name,
			"interval", opts.Interval,
			"default", DefaultInterval,
		)
		r.interval = DefaultInterval
	}

	return r, nil
}

// Start begins ticking. The first tick fires one interval after Start.
//
// The ticker is created before Start returns, so a caller driving a manual
// clock can advance it immediately afterwards.
//
// Returns:
//   - error: ErrAlreadyRunning if the runner is already started
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	ticker := r.clock.NewTicker(r.interval)

	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.loop(runCtx, ticker)

	r.logger.Debug("runner started", "runner", r.name, "interval", r.interval)
	return nil
}

// Stop cancels the runner and waits for an in-flight job to return.
// Safe to call multiple times and on a runner that was never started.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Debug("runner stopped", "runner", r.name)
}

// IsRunning reports whether the runner has been started and not stopped.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Interval returns the effective tick interval.
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Runs returns how many times the job has been executed.
func (r *Runner) Runs() uint64 {
	return r.runs.Load()
}

// Failures returns how many executions returned an error or panicked.
func (r *Runner) Failures() uint64 {
	return r.failures.Load()
}

// RunOnce executes the job immediately on the caller's goroutine with the
// same panic recovery and accounting as a scheduled tick.
func (r *Runner) RunOnce(ctx context.Context) error {
	err := r.safeRun(ctx)
	r.runs.Add(1)
	if err != nil {
		r.failures.Add(1)
	}
	return err
}

func (r *Runner) loop(ctx context.Context, ticker Ticker) {
	defer r.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("scheduled job failed", "runner", r.name, "error", err)
			}
		}
	}
}

// safeRun runs the job, converting a panic into an error.
func (r *Runner) safeRun(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanic, p)
		}
	}()
	return r.job(ctx)
}
