package influxdb

import (
	"context"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/piot-cda/internal/data"
)

// Measurement names.
const (
	SensorMeasurement            = "sensor"
	ActuatorMeasurement          = "actuator"
	SystemPerformanceMeasurement = "system_performance"
)

// RecordSensorData queues a sensor point. It never blocks on the network.
func (c *Client) RecordSensorData(_ context.Context, d *data.SensorData) error {
	if d == nil {
		return ErrNilData
	}
	return c.write(sensorPoint(c.deviceID, d))
}

// RecordActuatorData queues an actuator command or response point.
func (c *Client) RecordActuatorData(_ context.Context, d *data.ActuatorData) error {
	if d == nil {
		return ErrNilData
	}
	return c.write(actuatorPoint(c.deviceID, d))
}

// RecordSystemPerformanceData queues a performance point.
func (c *Client) RecordSystemPerformanceData(_ context.Context, d *data.SystemPerformanceData) error {
	if d == nil {
		return ErrNilData
	}
	return c.write(systemPerformancePoint(c.deviceID, d))
}

func (c *Client) write(p *write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writeAPI.WritePoint(p)
	return nil
}

func sensorPoint(deviceID string, d *data.SensorData) *write.Point {
	tags := map[string]string{
		"device_id": deviceID,
		"name":      d.Name,
		"type_id":   strconv.Itoa(d.TypeID),
	}
	if d.LocationID != "" {
		tags["location_id"] = d.LocationID
	}
	return write.NewPoint(SensorMeasurement, tags, map[string]any{
		"value":       d.Value,
		"status_code": d.StatusCode,
	}, pointTime(d.TimeStamp))
}

func actuatorPoint(deviceID string, d *data.ActuatorData) *write.Point {
	return write.NewPoint(ActuatorMeasurement, map[string]string{
		"device_id":   deviceID,
		"name":        d.Name,
		"type_id":     strconv.Itoa(d.TypeID),
		"is_response": strconv.FormatBool(d.IsResponse),
	}, map[string]any{
		"command":     d.Command,
		"value":       d.Value,
		"status_code": d.StatusCode,
	}, pointTime(d.TimeStamp))
}

func systemPerformancePoint(deviceID string, d *data.SystemPerformanceData) *write.Point {
	return write.NewPoint(SystemPerformanceMeasurement, map[string]string{
		"device_id": deviceID,
		"name":      d.Name,
	}, map[string]any{
		"cpu":  d.CPUUtilization,
		"mem":  d.MemoryUtilization,
		"disk": d.DiskUtilization,
	}, pointTime(d.TimeStamp))
}

func pointTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}
