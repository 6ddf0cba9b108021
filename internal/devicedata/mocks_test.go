package devicedata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
	"github.com/nerrad567/piot-cda/internal/transport"
)

type published struct {
	resource data.ResourceName
	name     string
	payload  []byte
	timeout  time.Duration
}

// mockPubSub records every call. Publish blocks while block is non-nil and
// open.
type mockPubSub struct {
	mu            sync.Mutex
	connectResult bool
	connected     bool
	connects      int
	disconnects   int
	subscribed    map[data.ResourceName]byte
	unsubscribed  []data.ResourceName
	published     []published
	listener      transport.MessageListener
	block         chan struct{}
	rejectPublish bool
}

func newMockPubSub(connectResult bool) *mockPubSub {
	return &mockPubSub{
		connectResult: connectResult,
		subscribed:    make(map[data.ResourceName]byte),
	}
}

func (p *mockPubSub) Connect(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connects++
	p.connected = p.connectResult
	return p.connected
}

func (p *mockPubSub) Disconnect() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects++
	p.connected = false
	return true
}

func (p *mockPubSub) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *mockPubSub) Publish(resource data.ResourceName, payload []byte, _ byte) bool {
	p.mu.Lock()
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.rejectPublish {
		return false
	}
	p.published = append(p.published, published{resource: resource, payload: append([]byte(nil), payload...)})
	return true
}

func (p *mockPubSub) Subscribe(resource data.ResourceName, qos byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed[resource] = qos
	return true
}

func (p *mockPubSub) Unsubscribe(resource data.ResourceName) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribed, resource)
	p.unsubscribed = append(p.unsubscribed, resource)
	return true
}

func (p *mockPubSub) SetMessageListener(l transport.MessageListener) bool {
	if l == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
	return true
}

func (p *mockPubSub) publishedOn(resource data.ResourceName) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.published {
		if m.resource == resource {
			out = append(out, m)
		}
	}
	return out
}

// mockRequestResponse is a request/response client whose discovery result
// is fixed.
type mockRequestResponse struct {
	mu          sync.Mutex
	discoverOK  bool
	connected   bool
	closed      bool
	posts       []published
	observing   map[data.ResourceName]time.Duration
	stopped     []data.ResourceName
	listener    transport.MessageListener
	disconnects int
}

func newMockRequestResponse(discoverOK bool) *mockRequestResponse {
	return &mockRequestResponse{
		discoverOK: discoverOK,
		observing:  make(map[data.ResourceName]time.Duration),
	}
}

func (c *mockRequestResponse) Discover(time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = c.discoverOK && !c.closed
	return c.connected
}

func (c *mockRequestResponse) Get(data.ResourceName, string, bool, time.Duration) bool {
	return c.IsConnected()
}

func (c *mockRequestResponse) Put(data.ResourceName, string, []byte, bool, time.Duration) bool {
	return c.IsConnected()
}

func (c *mockRequestResponse) Post(resource data.ResourceName, name string, payload []byte, _ bool, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	c.posts = append(c.posts, published{resource: resource, name: name, payload: append([]byte(nil), payload...), timeout: timeout})
	return true
}

func (c *mockRequestResponse) Delete(data.ResourceName, string, bool, time.Duration) bool {
	return c.IsConnected()
}

func (c *mockRequestResponse) StartObserve(resource data.ResourceName, _ string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observing[resource] = ttl
	return true
}

func (c *mockRequestResponse) StopObserve(resource data.ResourceName, _ string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.observing[resource]
	delete(c.observing, resource)
	c.stopped = append(c.stopped, resource)
	return ok
}

func (c *mockRequestResponse) Disconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
	c.closed = true
	return true
}

func (c *mockRequestResponse) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *mockRequestResponse) SetMessageListener(l transport.MessageListener) bool {
	if l == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
	return true
}

// mockRecorder stores everything it is given.
type mockRecorder struct {
	mu        sync.Mutex
	sensors   []*data.SensorData
	actuators []*data.ActuatorData
	perf      []*data.SystemPerformanceData
	fail      bool
	panics    bool
}

var errRecordFailed = errors.New("record failed")

func (r *mockRecorder) RecordSensorData(_ context.Context, d *data.SensorData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("disk full")
	}
	if r.fail {
		return errRecordFailed
	}
	r.sensors = append(r.sensors, d.Clone())
	return nil
}

func (r *mockRecorder) RecordActuatorData(_ context.Context, d *data.ActuatorData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errRecordFailed
	}
	r.actuators = append(r.actuators, d.Clone())
	return nil
}

func (r *mockRecorder) RecordSystemPerformanceData(_ context.Context, d *data.SystemPerformanceData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errRecordFailed
	}
	r.perf = append(r.perf, d.Clone())
	return nil
}

func (r *mockRecorder) counts() (sensors, actuators, perf int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sensors), len(r.actuators), len(r.perf)
}

// mockPruner records each cutoff it is called with.
type mockPruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (p *mockPruner) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, olderThan)
	return 1, nil
}

func (p *mockPruner) calls() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.cutoffs...)
}

// fixedSensor returns the same value on every read.
type fixedSensor struct {
	name   string
	typeID int
	value  float64

	mu    sync.Mutex
	reads int
}

func (s *fixedSensor) Name() string { return s.name }
func (s *fixedSensor) TypeID() int  { return s.typeID }

func (s *fixedSensor) Read() (*data.SensorData, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	d := data.NewSensorData(s.typeID, s.name)
	d.SetValue(s.value)
	return d, nil
}

func (s *fixedSensor) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// fixedCollector returns the same utilisation on every sample.
type fixedCollector struct {
	typeID int
	value  float64

	mu      sync.Mutex
	samples int
}

func (c *fixedCollector) Name() string { return "fixed" }
func (c *fixedCollector) TypeID() int  { return c.typeID }

func (c *fixedCollector) Collect(context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples++
	return c.value, nil
}

func (c *fixedCollector) sampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

// sensorListener collects notifications.
type sensorListener struct {
	mu       sync.Mutex
	received []*data.SensorData
	result   bool
	panics   bool
}

func (l *sensorListener) OnSensorDataUpdate(d *data.SensorData) bool {
	if l.panics {
		panic("listener failure")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, d)
	return l.result
}

func (l *sensorListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.received)
}

type perfListener struct {
	mu       sync.Mutex
	received int
}

func (l *perfListener) OnSystemPerformanceDataUpdate(*data.SystemPerformanceData) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received++
	return true
}

type responseListener struct {
	mu        sync.Mutex
	responses []*data.ActuatorData
}

func (l *responseListener) OnActuatorResponse(d *data.ActuatorData) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, d)
	return true
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
