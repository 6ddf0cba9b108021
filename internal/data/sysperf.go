package data

import "fmt"

// SystemPerformanceData is a snapshot of device utilisation, each value a
// percentage between 0 and 100.
type SystemPerformanceData struct {
	BaseIotData
	CPUUtilization    float64 `json:"cpuUtilization"`
	DiskUtilization   float64 `json:"diskUtilization"`
	MemoryUtilization float64 `json:"memoryUtilization"`
}

// NewSystemPerformanceData creates a snapshot named SystemPerfMsg.
func NewSystemPerformanceData() *SystemPerformanceData {
	return &SystemPerformanceData{BaseIotData: newBase(SystemPerfType, SystemPerfName)}
}

// UpdateData replaces every field with the values from other and refreshes
// the timestamp. A nil other is ignored.
func (d *SystemPerformanceData) UpdateData(other *SystemPerformanceData) {
	if other == nil {
		return
	}
	d.CPUUtilization = other.CPUUtilization
	d.DiskUtilization = other.DiskUtilization
	d.MemoryUtilization = other.MemoryUtilization
	d.updateBase(&other.BaseIotData)
}

// Clone returns an independent copy. Clone of nil is nil.
func (d *SystemPerformanceData) Clone() *SystemPerformanceData {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *SystemPerformanceData) String() string {
	return fmt.Sprintf("SystemPerformanceData{name=%s cpu=%.2f mem=%.2f disk=%.2f ts=%s}",
		d.Name, d.CPUUtilization, d.MemoryUtilization, d.DiskUtilization, d.TimeStamp.Format(timeLayout))
}
