package mqtt

import (
	"github.com/nerrad567/piot-cda/internal/data"
)

// TopicPrefix is the base for every agent topic.
const TopicPrefix = data.ProductName + "/" + data.ConstrainedDevice

// Topics provides builders for the agent's MQTT topics.
type Topics struct{}

// Resource returns the topic for a resource, e.g.
// PIOT/ConstrainedDevice/SensorMsg. Unknown resources yield "".
func (Topics) Resource(r data.ResourceName) string {
	if !r.Valid() {
		return ""
	}
	return r.String()
}

// Status returns the management status topic used for the LWT and the
// online/offline reports.
func (t Topics) Status() string {
	return t.Resource(data.MgmtStatusMsgResource)
}

// All returns a wildcard matching every agent topic.
func (Topics) All() string {
	return TopicPrefix + "/#"
}

// ParseTopic maps a received topic back to its resource.
func (Topics) ParseTopic(topic string) (data.ResourceName, error) {
	return data.ParseResourceName(topic)
}
