package sensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/scheduler"
	"github.com/nerrad567/piot-cda/internal/sim"
)

// Logger is the logging interface used by the sensing package.
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

// Handler receives each reading.
type Handler interface {
	HandleSensorMessage(d *data.SensorData) bool
}

// Options configures a Manager.
type Options struct {
	Interval   time.Duration
	LocationID string
	Clock      scheduler.Clock
	Logger     Logger
}

// Manager reads every sensor once per tick.
//
// Sensors are read in the order given, so readings for one name reach the
// handler in tick order.
type Manager struct {
	sensors    []sim.Sensor
	handler    Handler
	locationID string
	logger     Logger
	runner     *scheduler.Runner
}

// NewManager creates a stopped sensor poller.
//
// Parameters:
//   - opts: Interval, clock and logger
//   - handler: Receives every reading
//   - sensors: Sensors to poll; names must be unique
//
// Returns:
//   - *Manager: Ready to Start
//   - error: ErrNilHandler, ErrNoSensors or ErrDuplicateSensor
func NewManager(opts Options, handler Handler, sensors ...sim.Sensor) (*Manager, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if len(sensors) == 0 {
		return nil, ErrNoSensors
	}

	seen := make(map[string]struct{}, len(sensors))
	for _, s := range sensors {
		if _, dup := seen[s.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSensor, s.Name())
		}
		seen[s.Name()] = struct{}{}
	}

	m := &Manager{
		sensors:    sensors,
		handler:    handler,
		locationID: opts.LocationID,
		logger:     opts.Logger,
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}

	runner, err := scheduler.NewRunner(scheduler.Options{
		Name:     "sensing",
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

// Start begins polling.
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

// Sensors returns the names of the polled sensors.
func (m *Manager) Sensors() []string {
	names := make([]string, len(m.sensors))
	for i, s := range m.sensors {
		names[i] = s.Name()
	}
	return names
}

// Poll reads each sensor once. A failing sensor does not prevent the others
// from being read.
func (m *Manager) Poll(ctx context.Context) error {
	var errs []error
	for _, s := range m.sensors {
		if err := ctx.Err(); err != nil {
			return err
		}

		reading, err := s.Read()
		if err != nil {
			m.logger.Warn("sensor read failed", "sensor", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if reading == nil {
			continue
		}
		if m.locationID != "" {
			reading.SetLocation(m.locationID, reading.Latitude, reading.Longitude, reading.Elevation)
		}

		m.logger.Debug("sensor reading", "sensor", reading.Name, "value", reading.Value)

		if !m.handler.HandleSensorMessage(reading) {
			errs = append(errs, fmt.Errorf("%s: reading rejected", s.Name()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPollFailed, errors.Join(errs...))
	}
	return nil
}
