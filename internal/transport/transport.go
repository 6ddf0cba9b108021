package transport

import (
	"context"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
)

// MessageListener receives inbound payloads from a transport.
type MessageListener interface {
	HandleIncomingMessage(resource data.ResourceName, payload []byte) bool
}

// ListenerFunc adapts a function to MessageListener.
type ListenerFunc func(resource data.ResourceName, payload []byte) bool

// HandleIncomingMessage calls f.
func (f ListenerFunc) HandleIncomingMessage(resource data.ResourceName, payload []byte) bool {
	return f(resource, payload)
}

// PubSubClient is a broker-mediated publish/subscribe channel.
//
// QoS follows MQTT: 0 at most once, 1 at least once, 2 exactly once. Values
// above 2 are clamped. Every method reports failure as false and never
// panics; Disconnect on a disconnected client returns true.
type PubSubClient interface {
	Connect(ctx context.Context) bool
	Disconnect() bool
	IsConnected() bool
	Publish(resource data.ResourceName, payload []byte, qos byte) bool
	Subscribe(resource data.ResourceName, qos byte) bool
	Unsubscribe(resource data.ResourceName) bool
	SetMessageListener(l MessageListener) bool
}

// RequestResponseClient is a request/response channel with observe support.
//
// A confirmable request is retried until the peer acknowledges it or the
// timeout elapses, and the call reports the outcome. A non-confirmable
// request is sent in the background and the call returns true at once.
// An observe with ttl <= 0 runs until StopObserve or Disconnect.
type RequestResponseClient interface {
	Discover(timeout time.Duration) bool
	Get(resource data.ResourceName, name string, confirmable bool, timeout time.Duration) bool
	Put(resource data.ResourceName, name string, payload []byte, confirmable bool, timeout time.Duration) bool
	Post(resource data.ResourceName, name string, payload []byte, confirmable bool, timeout time.Duration) bool
	Delete(resource data.ResourceName, name string, confirmable bool, timeout time.Duration) bool
	StartObserve(resource data.ResourceName, name string, ttl time.Duration) bool
	StopObserve(resource data.ResourceName, name string) bool
	Disconnect() bool
	IsConnected() bool
	SetMessageListener(l MessageListener) bool
}

// ClampQoS limits qos to the range 0..2.
func ClampQoS(qos byte) byte {
	if qos > 2 {
		return 2
	}
	return qos
}
