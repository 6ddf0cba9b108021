// Package sysperf samples host utilisation and feeds it to the device data
// manager.
//
// Collectors read one metric each through gopsutil: CPU busy percentage,
// virtual memory used percentage and disk used percentage for a path. A
// Manager runs the collectors on a scheduler.Runner and delivers one
// SystemPerformanceData snapshot per tick.
package sysperf
