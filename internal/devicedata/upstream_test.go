package devicedata

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
)

func TestOutboundQueue_DropsOldest(t *testing.T) {
	q := newOutboundQueue(2)

	for i, name := range []string{"a", "b", "c"} {
		evicted := q.push(outbound{name: name})
		if want := i == 2; evicted != want {
			t.Errorf("push(%s) evicted = %v, want %v", name, evicted, want)
		}
	}
	if q.len() != 2 {
		t.Fatalf("len() = %d, want 2", q.len())
	}

	var got []string
	for {
		o, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, o.name)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("popped %v, want [b c]", got)
	}
}

func TestOutboundQueue_DefaultSize(t *testing.T) {
	if q := newOutboundQueue(0); q.size != defaultQueueSize {
		t.Errorf("size = %d, want %d", q.size, defaultQueueSize)
	}
}

// A publish that never returns must not hold up the handlers.
func TestBlockedUpstream_DoesNotBlockHandlers(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.QueueSize = 2
	cfg.Upstream.SendTimeoutSecs = 60

	ps := newMockPubSub(true)
	ps.block = make(chan struct{})
	m, _ := newTestManager(t, Options{Config: cfg, PubSub: ps})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	// Stop waits for the worker, which is stuck in Publish until released.
	t.Cleanup(func() { close(ps.block) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r := data.NewSensorData(data.PressureSensorType, data.PressureSensorName)
			r.SetValue(float64(1000 + i))
			m.HandleSensorMessage(r)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers blocked behind a stalled publish")
	}

	if got := m.GetLatestSensorDataFromCache(data.PressureSensorName); got == nil || got.Value != 1009 {
		t.Errorf("cached = %v, want value 1009", got)
	}
	if q := m.QueueLen(); q > 2 {
		t.Errorf("QueueLen() = %d, want at most 2", q)
	}
	// One item is held by the worker, two fit in the queue, the rest drop.
	if d := m.Stats().UpstreamDropped; d < 7 {
		t.Errorf("UpstreamDropped = %d, want at least 7", d)
	}
}

func TestCallWithTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		fn   func() bool
		want bool
	}{
		{"success", context.Background(), func() bool { return true }, true},
		{"failure", context.Background(), func() bool { return false }, false},
		{"panic", context.Background(), func() bool { panic("boom") }, false},
		{"timeout", context.Background(), func() bool { <-release; return true }, false},
		{"cancelled", cancelled, func() bool { <-release; return true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := callWithTimeout(tt.ctx, 20*time.Millisecond, tt.fn); got != tt.want {
				t.Errorf("callWithTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSend_FailureCounted(t *testing.T) {
	ps := newMockPubSub(true)
	ps.rejectPublish = true
	m, _ := newTestManager(t, Options{PubSub: ps})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	m.HandleSensorMessage(data.NewSensorData(data.PressureSensorType, data.PressureSensorName))

	waitFor(t, "failure counted", func() bool { return m.Stats().UpstreamFailed == 1 })
	if s := m.Stats(); s.UpstreamSent != 0 {
		t.Errorf("UpstreamSent = %d after a failed publish", s.UpstreamSent)
	}
}

func TestEncodeOutbound(t *testing.T) {
	status := data.NewStatusData("cda-1", data.StateOnline)
	payload, err := encodeOutbound(outbound{resource: data.MgmtStatusMsgResource, status: status})
	if err != nil {
		t.Fatalf("encodeOutbound() error: %v", err)
	}
	got, err := data.JSONToStatusData(payload)
	if err != nil {
		t.Fatalf("JSONToStatusData() error: %v", err)
	}
	if got.StateData != data.StateOnline {
		t.Errorf("state = %q, want %q", got.StateData, data.StateOnline)
	}
}
