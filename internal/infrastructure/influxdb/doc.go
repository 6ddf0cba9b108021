// Package influxdb is the optional time-series sink for device telemetry.
//
// Client wraps influxdb-client-go v2 and implements devicedata.Recorder:
// every sensor reading, actuator command or response, and performance
// snapshot the manager records becomes one point. Writes use the
// non-blocking WriteAPI, so points are batched (batch_size) and flushed
// (flush_interval) in the background; write failures arrive on the
// callback set with SetOnError.
//
// Measurements:
//
//	sensor              tags device_id, name, type_id, location_id  fields value, status_code
//	actuator            tags device_id, name, type_id, is_response  fields command, value, status_code
//	system_performance  tags device_id, name                        fields cpu, mem, disk
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { logger.Warn("influx write failed", "error", err) })
package influxdb
