package actuation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/sim"
)

// Logger is the logging interface used by the actuation package.
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

// Dispatcher maps actuator type IDs to actuators.
//
// Thread Safety:
//   - Register and Dispatch may be called concurrently.
//   - Commands for the same actuator are applied one at a time.
type Dispatcher struct {
	mu        sync.RWMutex
	actuators map[int]*entry
	logger    Logger
}

type entry struct {
	mu  sync.Mutex
	act sim.Actuator
}

// NewDispatcher creates a dispatcher with the given actuators.
//
// Returns:
//   - *Dispatcher: Ready to dispatch
//   - error: ErrNilActuator or ErrDuplicateActuator
func NewDispatcher(actuators ...sim.Actuator) (*Dispatcher, error) {
	d := &Dispatcher{
		actuators: make(map[int]*entry, len(actuators)),
		logger:    noopLogger{},
	}
	for _, a := range actuators {
		if err := d.Register(a); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Register adds an actuator under its TypeID.
func (d *Dispatcher) Register(a sim.Actuator) error {
	if a == nil {
		return ErrNilActuator
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.actuators[a.TypeID()]; ok {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateActuator, a.TypeID(), existing.act.Name())
	}
	d.actuators[a.TypeID()] = &entry{act: a}
	return nil
}

// Has reports whether an actuator is registered for typeID.
func (d *Dispatcher) Has(typeID int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.actuators[typeID]
	return ok
}

// Dispatch executes cmd and returns the response. A nil command returns nil.
// cmd is not modified.
//
// Status codes:
//   - data.StatusOK: actuator accepted the command
//   - data.StatusUnknownActuator: no actuator for cmd.TypeID
//   - data.StatusInvalidCommand: command is neither ON nor OFF
//   - data.StatusInvalidValue: set point outside the actuator's range
//   - data.StatusActuationFailed: any other actuator error
func (d *Dispatcher) Dispatch(cmd *data.ActuatorData) *data.ActuatorData {
	if cmd == nil {
		return nil
	}

	d.mu.RLock()
	e, ok := d.actuators[cmd.TypeID]
	logger := d.logger
	d.mu.RUnlock()

	if !ok {
		logger.Warn("no actuator for command", "type_id", cmd.TypeID, "name", cmd.Name)
		return cmd.NewResponse(data.StatusUnknownActuator)
	}

	if cmd.Command != data.CommandOn && cmd.Command != data.CommandOff {
		logger.Warn("invalid actuator command", "actuator", e.act.Name(), "command", cmd.Command)
		return cmd.NewResponse(data.StatusInvalidCommand)
	}

	err := e.apply(cmd)

	status := data.StatusOK
	if err != nil {
		status = data.StatusActuationFailed
		if errors.Is(err, sim.ErrValueOutOfRange) {
			status = data.StatusInvalidValue
		}
		logger.Warn("actuation failed",
			"actuator", e.act.Name(),
			"command", cmd.Command,
			"value", cmd.Value,
			"status", status,
			"error", err,
		)
	} else {
		logger.Debug("actuation applied",
			"actuator", e.act.Name(),
			"command", cmd.Command,
			"value", cmd.Value,
		)
	}

	return cmd.NewResponse(status)
}

// apply runs cmd against the actuator under the entry lock. A panicking
// actuator is reported as ErrActuatorPanic and the lock is still released.
func (e *entry) apply(cmd *data.ActuatorData) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActuatorPanic, r)
		}
	}()

	if cmd.Command == data.CommandOn {
		return e.act.Activate(cmd.Value, cmd.StateData)
	}
	return e.act.Deactivate()
}
