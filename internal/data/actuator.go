package data

import "fmt"

// ActuatorData is either a command for an actuator or, with IsResponse set,
// the result of executing one.
type ActuatorData struct {
	BaseIotData
	Command    int     `json:"command"`
	Value      float64 `json:"value"`
	StateData  string  `json:"stateData"`
	IsResponse bool    `json:"isResponse"`
}

// NewActuatorData creates a command with a fresh timestamp.
func NewActuatorData(typeID int, name string) *ActuatorData {
	return &ActuatorData{BaseIotData: newBase(typeID, name)}
}

// SetCommand sets the command and refreshes the timestamp.
func (d *ActuatorData) SetCommand(cmd int) {
	d.Command = cmd
	d.UpdateTimeStamp()
}

// SetValue sets the set point and refreshes the timestamp.
func (d *ActuatorData) SetValue(v float64) {
	d.Value = v
	d.UpdateTimeStamp()
}

// SetStateData sets the opaque state payload and refreshes the timestamp.
func (d *ActuatorData) SetStateData(s string) {
	d.StateData = s
	d.UpdateTimeStamp()
}

// NewResponse returns a response for this command: a copy carrying the same
// name, type, command, value and state data, with IsResponse set and a fresh
// timestamp. The receiver is not modified.
func (d *ActuatorData) NewResponse(statusCode int) *ActuatorData {
	r := d.Clone()
	r.IsResponse = true
	r.SetStatusCode(statusCode)
	return r
}

// UpdateData replaces every field with the values from other and refreshes
// the timestamp. A nil other is ignored.
func (d *ActuatorData) UpdateData(other *ActuatorData) {
	if other == nil {
		return
	}
	d.Command = other.Command
	d.Value = other.Value
	d.StateData = other.StateData
	d.IsResponse = other.IsResponse
	d.updateBase(&other.BaseIotData)
}

// Clone returns an independent copy. Clone of nil is nil.
func (d *ActuatorData) Clone() *ActuatorData {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *ActuatorData) String() string {
	return fmt.Sprintf("ActuatorData{name=%s typeID=%d command=%d value=%.3f response=%t status=%d ts=%s}",
		d.Name, d.TypeID, d.Command, d.Value, d.IsResponse, d.StatusCode, d.TimeStamp.Format(timeLayout))
}
