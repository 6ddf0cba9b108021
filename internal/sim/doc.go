// Package sim provides simulated sensor and actuator capabilities.
//
// A Sensor produces one SensorData reading per call to Read. An Actuator
// accepts activate and deactivate requests and keeps its last state. The
// simulators stand in for hardware on development machines and in tests;
// real drivers implement the same interfaces.
//
// Simulated sensor values are drawn uniformly between a configured floor and
// ceiling. No attempt is made to model drift or noise.
package sim
