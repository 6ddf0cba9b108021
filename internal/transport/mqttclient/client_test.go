package mqttclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/infrastructure/config"
	"github.com/nerrad567/piot-cda/internal/infrastructure/mqtt"
	"github.com/nerrad567/piot-cda/internal/transport"
)

// fakeBroker loops published messages back to matching subscriptions.
type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string]mqtt.MessageHandler
	published []string
	qos       []byte
	closed    int
	failPub   bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, _ bool) error {
	b.mu.Lock()
	if b.failPub {
		b.mu.Unlock()
		return mqtt.ErrPublishFailed
	}
	b.published = append(b.published, topic)
	b.qos = append(b.qos, qos)
	h := b.handlers[topic]
	b.mu.Unlock()

	if h != nil {
		return h(topic, payload)
	}
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.closed++
	return nil
}

type recordingListener struct {
	mu       sync.Mutex
	received []data.ResourceName
	reject   bool
}

func (l *recordingListener) HandleIncomingMessage(r data.ResourceName, _ []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, r)
	return !l.reject
}

func newTestClient(t *testing.T, broker *fakeBroker, dialErr error) *Client {
	t.Helper()
	return New(Options{
		Config:   config.MQTTConfig{QoS: 1},
		DeviceID: "cda-test",
		Dial: func(context.Context, string) (Broker, error) {
			if dialErr != nil {
				return nil, dialErr
			}
			broker.mu.Lock()
			broker.connected = true
			broker.mu.Unlock()
			return broker, nil
		},
	})
}

func TestNew_ClientID(t *testing.T) {
	generated := New(Options{DeviceID: "cda-7"})
	if !strings.HasPrefix(generated.ClientID(), "cda-7-") || len(generated.ClientID()) != len("cda-7-")+8 {
		t.Errorf("generated ClientID() = %q", generated.ClientID())
	}
	if New(Options{DeviceID: "cda-7"}).ClientID() == generated.ClientID() {
		t.Error("generated client IDs collide")
	}

	fixed := New(Options{Config: config.MQTTConfig{Broker: config.MQTTBrokerConfig{ClientID: "fixed"}}})
	if fixed.ClientID() != "fixed" {
		t.Errorf("configured ClientID() = %q", fixed.ClientID())
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := newTestClient(t, newFakeBroker(), errors.New("refused"))

	if c.Connect(context.Background()) {
		t.Fatal("Connect() = true with a failing dial")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true")
	}
	if c.Publish(data.SensorMsgResource, []byte("{}"), 1) {
		t.Error("Publish() = true while disconnected")
	}
	if c.Subscribe(data.ActuatorCmdResource, 1) {
		t.Error("Subscribe() = true while disconnected")
	}
	if !c.Disconnect() || !c.Disconnect() {
		t.Error("Disconnect() on a disconnected client should be true")
	}
}

func TestClient_PublishSubscribe(t *testing.T) {
	broker := newFakeBroker()
	c := newTestClient(t, broker, nil)
	l := &recordingListener{}

	if !c.SetMessageListener(l) {
		t.Fatal("SetMessageListener() = false")
	}
	if c.SetMessageListener(nil) {
		t.Error("SetMessageListener(nil) = true")
	}
	if !c.Connect(context.Background()) {
		t.Fatal("Connect() = false")
	}
	if !c.Subscribe(data.ActuatorCmdResource, 1) {
		t.Fatal("Subscribe() = false")
	}

	if !c.Publish(data.ActuatorCmdResource, []byte(`{}`), 7) {
		t.Fatal("Publish() = false")
	}

	if len(l.received) != 1 || l.received[0] != data.ActuatorCmdResource {
		t.Errorf("listener received %v", l.received)
	}
	if broker.published[0] != "PIOT/ConstrainedDevice/ActuatorCmd" {
		t.Errorf("topic = %q", broker.published[0])
	}
	if broker.qos[0] != 2 {
		t.Errorf("qos = %d, want clamped to 2", broker.qos[0])
	}
}

func TestClient_ListenerRejection(t *testing.T) {
	broker := newFakeBroker()
	c := newTestClient(t, broker, nil)
	c.SetMessageListener(&recordingListener{reject: true})
	c.Connect(context.Background())

	err := c.handleMessage("PIOT/ConstrainedDevice/SensorMsg", []byte("{}"))
	if !errors.Is(err, ErrRejected) {
		t.Errorf("handleMessage() error = %v, want ErrRejected", err)
	}
	if err := c.handleMessage("other/topic", nil); !errors.Is(err, data.ErrUnknownResource) {
		t.Errorf("handleMessage(unknown) error = %v", err)
	}
}

func TestClient_PublishFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.failPub = true
	c := newTestClient(t, broker, nil)
	c.Connect(context.Background())

	if c.Publish(data.SensorMsgResource, []byte("{}"), 0) {
		t.Error("Publish() = true on broker failure")
	}
	if c.Publish(data.UnknownResource, []byte("{}"), 0) {
		t.Error("Publish() to an unknown resource = true")
	}
}

func TestClient_ResubscribesAfterReconnect(t *testing.T) {
	broker := newFakeBroker()
	c := newTestClient(t, broker, nil)
	l := &recordingListener{}
	c.SetMessageListener(l)

	c.Connect(context.Background())
	c.Subscribe(data.ActuatorCmdResource, 1)
	c.Subscribe(data.MgmtStatusCmdResource, 1)

	if !c.Disconnect() {
		t.Fatal("Disconnect() = false")
	}
	broker.handlers = make(map[string]mqtt.MessageHandler)

	c.Connect(context.Background())
	if len(broker.handlers) != 2 {
		t.Errorf("handlers after reconnect = %d, want 2", len(broker.handlers))
	}

	if !c.Unsubscribe(data.MgmtStatusCmdResource) {
		t.Error("Unsubscribe() = false")
	}
	if len(broker.handlers) != 1 {
		t.Errorf("handlers after unsubscribe = %d, want 1", len(broker.handlers))
	}
}

func TestClient_Contract(t *testing.T) {
	var _ transport.PubSubClient = New(Options{DeviceID: "x"})
}
