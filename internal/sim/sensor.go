package sim

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Sensor is a telemetry source.
type Sensor interface {
	// Name returns the reading name, e.g. data.TempSensorName.
	Name() string

	// TypeID returns the sensor kind, e.g. data.TempSensorType.
	TypeID() int

	// Read samples the sensor and returns a new reading owned by the caller.
	Read() (*data.SensorData, error)
}

// Range is an inclusive floor/ceiling pair.
type Range struct {
	Floor   float64
	Ceiling float64
}

// SimulatedSensor returns uniformly distributed values inside its range.
type SimulatedSensor struct {
	name   string
	typeID int
	bounds Range

	mu     sync.Mutex
	rng    *rand.Rand
	latest *data.SensorData
}

// NewSensor creates a simulated sensor.
//
// Parameters:
//   - name: Reading name
//   - typeID: Sensor kind
//   - bounds: Value range; Floor == Ceiling yields a constant sensor
//   - src: Random source, nil for a randomly seeded one
//
// Returns:
//   - *SimulatedSensor: Ready to read
//   - error: ErrInvalidRange if bounds.Floor > bounds.Ceiling
func NewSensor(name string, typeID int, bounds Range, src rand.Source) (*SimulatedSensor, error) {
	if bounds.Floor > bounds.Ceiling {
		return nil, fmt.Errorf("%w: %s [%.2f, %.2f]", ErrInvalidRange, name, bounds.Floor, bounds.Ceiling)
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &SimulatedSensor{
		name:   name,
		typeID: typeID,
		bounds: bounds,
		rng:    rand.New(src),
	}, nil
}

// NewTemperatureSensor creates the simulated TempSensor.
func NewTemperatureSensor(bounds Range) (*SimulatedSensor, error) {
	return NewSensor(data.TempSensorName, data.TempSensorType, bounds, nil)
}

// NewHumiditySensor creates the simulated HumiditySensor.
func NewHumiditySensor(bounds Range) (*SimulatedSensor, error) {
	return NewSensor(data.HumiditySensorName, data.HumiditySensorType, bounds, nil)
}

// NewPressureSensor creates the simulated PressureSensor.
func NewPressureSensor(bounds Range) (*SimulatedSensor, error) {
	return NewSensor(data.PressureSensorName, data.PressureSensorType, bounds, nil)
}

// Name returns the reading name.
func (s *SimulatedSensor) Name() string { return s.name }

// TypeID returns the sensor kind.
func (s *SimulatedSensor) TypeID() int { return s.typeID }

// Bounds returns the configured range.
func (s *SimulatedSensor) Bounds() Range { return s.bounds }

// Read generates a new reading.
func (s *SimulatedSensor) Read() (*data.SensorData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.bounds.Floor
	if span := s.bounds.Ceiling - s.bounds.Floor; span > 0 {
		v += s.rng.Float64() * span
	}

	reading := data.NewSensorData(s.typeID, s.name)
	reading.SetValue(v)
	s.latest = reading.Clone()
	return reading, nil
}

// Latest returns a copy of the last generated reading, or nil before the
// first Read.
func (s *SimulatedSensor) Latest() *data.SensorData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.Clone()
}
