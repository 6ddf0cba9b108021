package data

import "fmt"

// SensorData is a single reading from a sensor. The sensor kind is carried in
// TypeID.
type SensorData struct {
	BaseIotData
	Value float64 `json:"value"`
}

// NewSensorData creates a reading with a fresh timestamp.
func NewSensorData(typeID int, name string) *SensorData {
	return &SensorData{BaseIotData: newBase(typeID, name)}
}

// SetValue sets the reading and refreshes the timestamp.
func (d *SensorData) SetValue(v float64) {
	d.Value = v
	d.UpdateTimeStamp()
}

// UpdateData replaces every field with the values from other and refreshes
// the timestamp. A nil other is ignored.
func (d *SensorData) UpdateData(other *SensorData) {
	if other == nil {
		return
	}
	d.Value = other.Value
	d.updateBase(&other.BaseIotData)
}

// Clone returns an independent copy. Clone of nil is nil.
func (d *SensorData) Clone() *SensorData {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *SensorData) String() string {
	return fmt.Sprintf("SensorData{name=%s typeID=%d value=%.3f status=%d ts=%s}",
		d.Name, d.TypeID, d.Value, d.StatusCode, d.TimeStamp.Format(timeLayout))
}
