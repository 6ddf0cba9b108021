package sim

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/nerrad567/piot-cda/internal/data"
)

func TestNewSensor_InvalidRange(t *testing.T) {
	_, err := NewSensor("s", data.TempSensorType, Range{Floor: 30, Ceiling: 10}, nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("NewSensor() error = %v, want ErrInvalidRange", err)
	}
}

func TestSimulatedSensor_ReadStaysInRange(t *testing.T) {
	tests := []struct {
		name   string
		build  func(Range) (*SimulatedSensor, error)
		typeID int
		bounds Range
	}{
		{"temperature", NewTemperatureSensor, data.TempSensorType, Range{15, 25}},
		{"humidity", NewHumiditySensor, data.HumiditySensorType, Range{35, 45}},
		{"pressure", NewPressureSensor, data.PressureSensorType, Range{990, 1010}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.build(tt.bounds)
			if err != nil {
				t.Fatalf("build error = %v", err)
			}
			if s.TypeID() != tt.typeID {
				t.Errorf("TypeID() = %d, want %d", s.TypeID(), tt.typeID)
			}
			for i := 0; i < 200; i++ {
				r, err := s.Read()
				if err != nil {
					t.Fatalf("Read() error = %v", err)
				}
				if r.Value < tt.bounds.Floor || r.Value > tt.bounds.Ceiling {
					t.Fatalf("Read() value = %.3f, outside [%.1f, %.1f]", r.Value, tt.bounds.Floor, tt.bounds.Ceiling)
				}
				if r.Name != s.Name() || r.TypeID != tt.typeID {
					t.Fatalf("Read() = %s", r)
				}
			}
		})
	}
}

func TestSimulatedSensor_ConstantRange(t *testing.T) {
	s, err := NewSensor("fixed", data.TempSensorType, Range{21.5, 21.5}, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("NewSensor() error = %v", err)
	}
	r, _ := s.Read()
	if r.Value != 21.5 {
		t.Errorf("Value = %v, want 21.5", r.Value)
	}
}

func TestSimulatedSensor_LatestIsCopy(t *testing.T) {
	s, _ := NewSensor("s", data.TempSensorType, Range{1, 2}, rand.NewPCG(3, 4))
	if s.Latest() != nil {
		t.Fatal("Latest() before Read should be nil")
	}

	r, _ := s.Read()
	r.Value = 999

	if got := s.Latest(); got.Value == 999 {
		t.Error("Latest() aliases the returned reading")
	}
}

func TestSimulatedActuator_Activate(t *testing.T) {
	tests := []struct {
		name    string
		act     *SimulatedActuator
		value   float64
		wantErr error
	}{
		{"hvac in range", NewHvacActuator(), 22.5, nil},
		{"hvac at max", NewHvacActuator(), HvacMaxSetPoint, nil},
		{"hvac too hot", NewHvacActuator(), 41, ErrValueOutOfRange},
		{"hvac negative", NewHvacActuator(), -1, ErrValueOutOfRange},
		{"humidifier in range", NewHumidifierActuator(), 45, nil},
		{"humidifier over 100", NewHumidifierActuator(), 101, ErrValueOutOfRange},
		{"led any value", NewLedDisplayActuator(), -500, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.act.Activate(tt.value, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Activate() error = %v, want %v", err, tt.wantErr)
			}

			st := tt.act.State()
			if tt.wantErr != nil {
				if st.On || st.Changes != 0 {
					t.Errorf("state changed on rejected command: %+v", st)
				}
				return
			}
			if !st.On || st.Value != tt.value {
				t.Errorf("State() = %+v", st)
			}
		})
	}
}

func TestSimulatedActuator_Deactivate(t *testing.T) {
	led := NewLedDisplayActuator()
	if err := led.Activate(0, "hello"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if got := led.State().StateData; got != "hello" {
		t.Errorf("StateData = %q, want hello", got)
	}

	if err := led.Deactivate(); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	st := led.State()
	if st.On || st.StateData != "" || st.Changes != 2 {
		t.Errorf("State() after Deactivate = %+v", st)
	}
}
