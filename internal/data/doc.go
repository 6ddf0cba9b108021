// Package data defines the value types exchanged by the constrained device
// agent and their JSON wire form.
//
// # Types
//
//   - SensorData: one reading from one sensor
//   - ActuatorData: an actuator command, or the response produced by executing it
//   - SystemPerformanceData: CPU, memory and disk utilisation for the device
//
// All three embed BaseIotData (name, type, timestamp, status, location).
//
// # Ownership
//
// Values are handed between components by copy. Every type has Clone, and the
// cache, listeners and dispatcher only ever store or return clones.
//
// # Wire format
//
// The codec functions (SensorDataToJSON, JSONToSensorData, ...) use the field
// names declared on the structs. Timestamps are RFC 3339 with nanoseconds and
// survive a round trip unchanged. Decoding also accepts the older key spellings
// timeStamp, cpuUtil, diskUtil and memUtil.
//
// # Resources
//
// ResourceName is the closed set of topics/resources the agent speaks, rendered
// as PIOT/ConstrainedDevice/<kind>.
package data
