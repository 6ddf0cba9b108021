package data

import "time"

// BaseIotData holds the fields shared by every data item.
type BaseIotData struct {
	Name       string    `json:"name"`
	TypeID     int       `json:"typeID"`
	TimeStamp  time.Time `json:"timestamp"`
	StatusCode int       `json:"statusCode"`
	HasError   bool      `json:"hasError"`
	LocationID string    `json:"locationID"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Elevation  float64   `json:"elevation"`
}

// newBase returns a base record with a fresh timestamp. An empty name is
// replaced by NotSet.
func newBase(typeID int, name string) BaseIotData {
	if name == "" {
		name = NotSet
	}
	return BaseIotData{
		Name:       name,
		TypeID:     typeID,
		TimeStamp:  now(),
		LocationID: DefaultLocationID,
	}
}

// now returns the current UTC time without a monotonic reading, so that
// values compare equal after a JSON round trip.
func now() time.Time {
	return time.Now().UTC().Round(0)
}

// SetName sets the name. Empty names are ignored.
func (b *BaseIotData) SetName(name string) {
	if name != "" {
		b.Name = name
	}
}

// SetStatusCode sets the status code and derives HasError from it.
func (b *BaseIotData) SetStatusCode(code int) {
	b.StatusCode = code
	b.HasError = code < 0
	b.UpdateTimeStamp()
}

// SetLocation sets the location identifier and coordinates.
func (b *BaseIotData) SetLocation(locationID string, lat, lon, elev float64) {
	if locationID != "" {
		b.LocationID = locationID
	}
	b.Latitude = lat
	b.Longitude = lon
	b.Elevation = elev
}

// UpdateTimeStamp moves the timestamp to now. It never moves it backwards.
func (b *BaseIotData) UpdateTimeStamp() {
	t := now()
	if t.After(b.TimeStamp) {
		b.TimeStamp = t
	}
}

// updateBase copies every base field from other and refreshes the timestamp.
func (b *BaseIotData) updateBase(other *BaseIotData) {
	prev := b.TimeStamp
	*b = *other
	if b.Name == "" {
		b.Name = NotSet
	}
	b.HasError = b.StatusCode < 0
	if prev.After(b.TimeStamp) {
		b.TimeStamp = prev
	}
	b.UpdateTimeStamp()
}
