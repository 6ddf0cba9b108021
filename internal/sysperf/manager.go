package sysperf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/scheduler"
)

// Logger is the logging interface used by the sysperf package.
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

// Handler receives each snapshot.
type Handler interface {
	HandleSystemPerformanceMessage(d *data.SystemPerformanceData) bool
}

// Options configures a Manager.
type Options struct {
	Interval   time.Duration
	LocationID string
	Clock      scheduler.Clock
	Logger     Logger
}

// Manager polls the collectors on a fixed interval.
type Manager struct {
	collectors []Collector
	handler    Handler
	locationID string
	logger     Logger
	runner     *scheduler.Runner
}

// NewManager creates a stopped system performance poller.
//
// Parameters:
//   - opts: Interval, clock and logger; a non-positive interval uses the
//     scheduler default
//   - handler: Receives one snapshot per tick
//   - collectors: Metrics to sample
//
// Returns:
//   - *Manager: Ready to Start
//   - error: ErrNilHandler or ErrNoCollectors
func NewManager(opts Options, handler Handler, collectors ...Collector) (*Manager, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if len(collectors) == 0 {
		return nil, ErrNoCollectors
	}

	m := &Manager{
		collectors: collectors,
		handler:    handler,
		locationID: opts.LocationID,
		logger:     opts.Logger,
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}

	runner, err := scheduler.NewRunner(scheduler.Options{
		Name:     "system-performance",
		Interval: opts.Interval,
		Clock:    opts.Clock,
		Logger:   m.logger,
	}, m.Poll)
	if err != nil {
		return nil, fmt.Errorf("creating runner: %w", err)
	}
	m.runner = runner

	return m, nil
}

// Start begins polling. See scheduler.Runner.Start.
func (m *Manager) Start(ctx context.Context) error {
	return m.runner.Start(ctx)
}

// Stop ends polling and waits for an in-flight poll.
func (m *Manager) Stop() {
	m.runner.Stop()
}

// Runner exposes the underlying runner for tick accounting.
func (m *Manager) Runner() *scheduler.Runner {
	return m.runner
}

// Poll samples every collector once and hands the snapshot to the handler.
// A collector that fails leaves its field at zero and marks the snapshot
// with a negative status code; Poll only fails when every collector fails.
func (m *Manager) Poll(ctx context.Context) error {
	snap := data.NewSystemPerformanceData()
	if m.locationID != "" {
		snap.SetLocation(m.locationID, 0, 0, 0)
	}

	var errs []error
	for _, c := range m.collectors {
		v, err := c.Collect(ctx)
		if err != nil {
			m.logger.Warn("collector failed", "collector", c.Name(), "error", err)
			errs = append(errs, err)
			continue
		}

		switch c.TypeID() {
		case data.CPUUtilType:
			snap.CPUUtilization = v
		case data.MemUtilType:
			snap.MemoryUtilization = v
		case data.DiskUtilType:
			snap.DiskUtilization = v
		default:
			m.logger.Warn("collector has unknown type", "collector", c.Name(), "type_id", c.TypeID())
		}
	}

	if len(errs) == len(m.collectors) {
		return fmt.Errorf("%w: %w", ErrAllCollectorsFailed, errors.Join(errs...))
	}
	if len(errs) > 0 {
		snap.SetStatusCode(-1)
	}
	snap.UpdateTimeStamp()

	m.logger.Debug("system performance sampled",
		"cpu", snap.CPUUtilization,
		"mem", snap.MemoryUtilization,
		"disk", snap.DiskUtilization,
	)

	if !m.handler.HandleSystemPerformanceMessage(snap) {
		return ErrRejected
	}
	return nil
}
