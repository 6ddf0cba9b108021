// Package sensing polls the configured sensors and delivers each reading to
// the device data manager.
package sensing
