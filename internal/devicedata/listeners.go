package devicedata

import (
	"context"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Logger is the logging interface used by the manager.
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

// Dispatcher executes actuator commands. actuation.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(cmd *data.ActuatorData) *data.ActuatorData
}

// TelemetryDataListener is notified of every reading for the name it was
// registered under.
type TelemetryDataListener interface {
	OnSensorDataUpdate(d *data.SensorData) bool
}

// SystemPerformanceDataListener is notified of every performance snapshot.
type SystemPerformanceDataListener interface {
	OnSystemPerformanceDataUpdate(d *data.SystemPerformanceData) bool
}

// ActuatorResponseListener is notified of every actuator response.
type ActuatorResponseListener interface {
	OnActuatorResponse(d *data.ActuatorData) bool
}

// Recorder persists data items. Recorders run on the upstream worker, so a
// slow recorder delays forwarding but never a poller.
type Recorder interface {
	RecordSensorData(ctx context.Context, d *data.SensorData) error
	RecordActuatorData(ctx context.Context, d *data.ActuatorData) error
	RecordSystemPerformanceData(ctx context.Context, d *data.SystemPerformanceData) error
}

// Pruner deletes recorded history older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}
