package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is used for human-readable String output.
const timeLayout = time.RFC3339Nano

// legacyBase carries the older key spellings accepted on decode.
type legacyBase struct {
	LegacyTimeStamp *time.Time `json:"timeStamp,omitempty"`
}

type sensorWire struct {
	SensorData
	legacyBase
}

type actuatorWire struct {
	ActuatorData
	legacyBase
}

type sysPerfWire struct {
	SystemPerformanceData
	legacyBase
	LegacyCPU  *float64 `json:"cpuUtil,omitempty"`
	LegacyDisk *float64 `json:"diskUtil,omitempty"`
	LegacyMem  *float64 `json:"memUtil,omitempty"`
}

// SensorDataToJSON encodes a reading to its wire form.
func SensorDataToJSON(d *SensorData) ([]byte, error) {
	if d == nil {
		return nil, ErrNilData
	}
	return json.Marshal(d)
}

// ActuatorDataToJSON encodes a command or response to its wire form.
func ActuatorDataToJSON(d *ActuatorData) ([]byte, error) {
	if d == nil {
		return nil, ErrNilData
	}
	return json.Marshal(d)
}

// SystemPerformanceDataToJSON encodes a snapshot to its wire form.
func SystemPerformanceDataToJSON(d *SystemPerformanceData) ([]byte, error) {
	if d == nil {
		return nil, ErrNilData
	}
	return json.Marshal(d)
}

// JSONToSensorData decodes a reading. The timestamp is taken from the payload
// unchanged; a payload without one gets the decode time.
func JSONToSensorData(payload []byte) (*SensorData, error) {
	var w sensorWire
	if err := decode(payload, &w); err != nil {
		return nil, err
	}
	d := w.SensorData
	finishBase(&d.BaseIotData, w.legacyBase)
	return &d, nil
}

// JSONToActuatorData decodes a command or response.
func JSONToActuatorData(payload []byte) (*ActuatorData, error) {
	var w actuatorWire
	if err := decode(payload, &w); err != nil {
		return nil, err
	}
	d := w.ActuatorData
	finishBase(&d.BaseIotData, w.legacyBase)
	return &d, nil
}

// JSONToSystemPerformanceData decodes a snapshot.
func JSONToSystemPerformanceData(payload []byte) (*SystemPerformanceData, error) {
	var w sysPerfWire
	if err := decode(payload, &w); err != nil {
		return nil, err
	}
	d := w.SystemPerformanceData
	if w.LegacyCPU != nil {
		d.CPUUtilization = *w.LegacyCPU
	}
	if w.LegacyDisk != nil {
		d.DiskUtilization = *w.LegacyDisk
	}
	if w.LegacyMem != nil {
		d.MemoryUtilization = *w.LegacyMem
	}
	finishBase(&d.BaseIotData, w.legacyBase)
	return &d, nil
}

func decode(payload []byte, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyPayload
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

// finishBase applies legacy keys and the fresh-instance defaults.
func finishBase(b *BaseIotData, legacy legacyBase) {
	if b.TimeStamp.IsZero() && legacy.LegacyTimeStamp != nil {
		b.TimeStamp = *legacy.LegacyTimeStamp
	}
	if b.TimeStamp.IsZero() {
		b.TimeStamp = now()
	}
	if b.Name == "" {
		b.Name = NotSet
	}
	b.HasError = b.StatusCode < 0
}
