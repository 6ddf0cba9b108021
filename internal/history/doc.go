// Package history keeps a local SQLite record of sensor readings, actuator
// commands and responses, and performance snapshots.
//
// Store implements devicedata.Recorder and devicedata.Pruner. Rows are
// written with UTC timestamps in a fixed-width layout so that text
// comparison orders them chronologically.
package history
