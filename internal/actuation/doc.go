// Package actuation routes actuator commands to the matching actuator and
// builds the response.
//
// Dispatch never fails: every command yields a response with IsResponse set,
// the command's name, command, value and state data echoed, and a status
// code. Zero means the actuator accepted the command; negative codes are
// defined in package data.
//
// Repeated identical commands are applied again and answered every time.
package actuation
