package sim

import (
	"fmt"
	"sync"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Actuator is a controllable output.
type Actuator interface {
	// Name returns the actuator name, e.g. data.HvacActuatorName.
	Name() string

	// TypeID returns the actuator kind, e.g. data.HvacActuatorType.
	TypeID() int

	// Activate switches the actuator on at the given set point.
	Activate(value float64, stateData string) error

	// Deactivate switches the actuator off.
	Deactivate() error
}

// Logger is the logging interface used by the simulators.
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

// Set point ranges for the simulated actuators.
const (
	HvacMinSetPoint       = 0.0
	HvacMaxSetPoint       = 40.0
	HumidifierMinSetPoint = 0.0
	HumidifierMaxSetPoint = 100.0
)

// ActuatorState is a snapshot of a simulated actuator.
type ActuatorState struct {
	On        bool
	Value     float64
	StateData string
	Changes   int
}

// SimulatedActuator records the commands it receives.
type SimulatedActuator struct {
	name      string
	typeID    int
	checkSize bool
	min, max  float64

	mu     sync.Mutex
	state  ActuatorState
	logger Logger
}

// NewHvacActuator creates the simulated HVAC unit. Set points are in °C.
func NewHvacActuator() *SimulatedActuator {
	return &SimulatedActuator{
		name:      data.HvacActuatorName,
		typeID:    data.HvacActuatorType,
		checkSize: true,
		min:       HvacMinSetPoint,
		max:       HvacMaxSetPoint,
		logger:    noopLogger{},
	}
}

// NewHumidifierActuator creates the simulated humidifier. Set points are in %RH.
func NewHumidifierActuator() *SimulatedActuator {
	return &SimulatedActuator{
		name:      data.HumidifierActuatorName,
		typeID:    data.HumidifierActuatorType,
		checkSize: true,
		min:       HumidifierMinSetPoint,
		max:       HumidifierMaxSetPoint,
		logger:    noopLogger{},
	}
}

// NewLedDisplayActuator creates the simulated LED display. It shows the
// command's state data and accepts any value.
func NewLedDisplayActuator() *SimulatedActuator {
	return &SimulatedActuator{
		name:   data.LedActuatorName,
		typeID: data.LedDisplayActuatorType,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for this actuator.
func (a *SimulatedActuator) SetLogger(logger Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// Name returns the actuator name.
func (a *SimulatedActuator) Name() string { return a.name }

// TypeID returns the actuator kind.
func (a *SimulatedActuator) TypeID() int { return a.typeID }

// Activate switches the actuator on.
func (a *SimulatedActuator) Activate(value float64, stateData string) error {
	if a.checkSize && (value < a.min || value > a.max) {
		return fmt.Errorf("%w: %s set point %.2f not in [%.2f, %.2f]",
			ErrValueOutOfRange, a.name, value, a.min, a.max)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.On = true
	a.state.Value = value
	a.state.StateData = stateData
	a.state.Changes++

	if a.typeID == data.LedDisplayActuatorType {
		a.logger.Info("led display", "text", stateData)
	} else {
		a.logger.Info("actuator on", "actuator", a.name, "value", value)
	}
	return nil
}

// Deactivate switches the actuator off. The last set point is kept.
func (a *SimulatedActuator) Deactivate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.On = false
	a.state.StateData = ""
	a.state.Changes++

	a.logger.Info("actuator off", "actuator", a.name)
	return nil
}

// State returns the current state.
func (a *SimulatedActuator) State() ActuatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
