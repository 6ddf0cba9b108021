package devicedata

import (
	"sync"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
)

// triggerRule keeps one sensor inside [floor, ceiling] by driving one
// actuator. active is true while the actuator is on because of this rule.
type triggerRule struct {
	sensorType   int
	actuatorType int
	actuatorName string
	floor        float64
	ceiling      float64
	active       bool
}

// triggerRules holds the enabled on-device rules.
type triggerRules struct {
	mu    sync.Mutex
	rules map[int]*triggerRule
}

func newTriggerRules(cfg config.ActuationConfig) *triggerRules {
	t := &triggerRules{rules: make(map[int]*triggerRule)}
	if cfg.HandleTempChangeOnDevice {
		t.rules[data.TempSensorType] = &triggerRule{
			sensorType:   data.TempSensorType,
			actuatorType: data.HvacActuatorType,
			actuatorName: data.HvacActuatorName,
			floor:        cfg.TriggerHvacTempFloor,
			ceiling:      cfg.TriggerHvacTempCeiling,
		}
	}
	if cfg.HandleHumidityChangeOnDevice {
		t.rules[data.HumiditySensorType] = &triggerRule{
			sensorType:   data.HumiditySensorType,
			actuatorType: data.HumidifierActuatorType,
			actuatorName: data.HumidifierActuatorName,
			floor:        cfg.TriggerHumidifierFloor,
			ceiling:      cfg.TriggerHumidifierCeiling,
		}
	}
	return t
}

// evaluate returns the command reading d calls for, or nil.
//
// Above the ceiling the actuator is switched on with the ceiling as its
// set-point; below the floor, with the floor. Once the reading is back inside
// the band, an actuator this rule switched on is switched off.
func (t *triggerRules) evaluate(d *data.SensorData) *data.ActuatorData {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rules[d.TypeID]
	if !ok {
		return nil
	}

	cmd := data.NewActuatorData(r.actuatorType, r.actuatorName)
	cmd.LocationID = d.LocationID
	switch {
	case d.Value > r.ceiling:
		cmd.SetCommand(data.CommandOn)
		cmd.SetValue(r.ceiling)
		r.active = true
	case d.Value < r.floor:
		cmd.SetCommand(data.CommandOn)
		cmd.SetValue(r.floor)
		r.active = true
	case r.active:
		cmd.SetCommand(data.CommandOff)
		r.active = false
	default:
		return nil
	}
	return cmd
}
