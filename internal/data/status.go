package data

import (
	"encoding/json"
	"fmt"
)

// Lifecycle states reported on MgmtStatusMsg.
const (
	StateOnline  = "online"
	StateOffline = "offline"
)

// StatusData reports the agent's lifecycle state. It travels on the
// MgmtStatusMsg resource; StateData carries the state and Name the device ID.
type StatusData struct {
	BaseIotData
	StateData string `json:"stateData"`
}

// NewStatusData creates a status report for deviceID.
func NewStatusData(deviceID, state string) *StatusData {
	s := &StatusData{BaseIotData: newBase(DefaultTypeID, deviceID), StateData: state}
	if state != StateOnline {
		s.SetStatusCode(-1)
	}
	return s
}

// Clone returns an independent copy. Clone of nil is nil.
func (d *StatusData) Clone() *StatusData {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *StatusData) String() string {
	return fmt.Sprintf("StatusData{name=%s state=%s status=%d ts=%s}",
		d.Name, d.StateData, d.StatusCode, d.TimeStamp.Format(timeLayout))
}

// StatusDataToJSON encodes a status report to its wire form.
func StatusDataToJSON(d *StatusData) ([]byte, error) {
	if d == nil {
		return nil, ErrNilData
	}
	return json.Marshal(d)
}

// JSONToStatusData decodes a status report or management command.
func JSONToStatusData(payload []byte) (*StatusData, error) {
	var w struct {
		StatusData
		legacyBase
	}
	if err := decode(payload, &w); err != nil {
		return nil, err
	}
	d := w.StatusData
	finishBase(&d.BaseIotData, w.legacyBase)
	return &d, nil
}
