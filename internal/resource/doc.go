// Package resource serves the device's own resources to peers over HTTP.
//
// Peers read the latest cached sensor readings, actuator responses and
// performance snapshots, send actuator commands, and observe changes over a
// websocket. Resource paths mirror the pub/sub topics, so a reading published
// on PIOT/ConstrainedDevice/SensorMsg is served at
//
//	GET /PIOT/ConstrainedDevice/SensorMsg/{name}
//
// and observed at
//
//	GET /observe/PIOT/ConstrainedDevice/SensorMsg/{name}
//
// Each observe frame is the JSON encoding of one data item.
package resource
