package devicedata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/piot-cda/internal/data"
)

// recordTimeout bounds a single recorder call.
const recordTimeout = 5 * time.Second

// outbound is one item on its way off the device. Exactly one of the data
// pointers is set. forward is false for items that are only recorded.
type outbound struct {
	resource data.ResourceName
	name     string
	forward  bool

	sensor   *data.SensorData
	actuator *data.ActuatorData
	perf     *data.SystemPerformanceData
	status   *data.StatusData
}

// outboundQueue is a bounded FIFO that drops its oldest item when full.
type outboundQueue struct {
	mu     sync.Mutex
	items  []outbound
	size   int
	signal chan struct{}
}

func newOutboundQueue(size int) *outboundQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &outboundQueue{
		items:  make([]outbound, 0, size),
		size:   size,
		signal: make(chan struct{}, 1),
	}
}

// push appends o, evicting the oldest item when the queue is full. It
// reports whether an item was evicted.
func (q *outboundQueue) push(o outbound) bool {
	q.mu.Lock()
	evicted := false
	if len(q.items) == q.size {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		evicted = true
	}
	q.items = append(q.items, o)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return evicted
}

func (q *outboundQueue) pop() (outbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return outbound{}, false
	}
	o := q.items[0]
	q.items[0] = outbound{}
	q.items = q.items[1:]
	return o, true
}

func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// enqueue hands o to the upstream worker. Nothing is queued when the item is
// neither forwarded nor recorded.
func (m *Manager) enqueue(o outbound) {
	if !o.forward && len(m.recorders) == 0 {
		return
	}
	if m.queue.push(o) {
		m.stats.upstreamDropped.Add(1)
		m.logger.Warn("upstream queue full, dropped oldest item", "queue_size", m.queue.size)
	}
}

// QueueLen returns the number of items waiting for the upstream worker.
func (m *Manager) QueueLen() int {
	return m.queue.len()
}

// runUpstream drains the queue until ctx is cancelled.
func (m *Manager) runUpstream(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.queue.signal:
		}
		for {
			if ctx.Err() != nil {
				return
			}
			o, ok := m.queue.pop()
			if !ok {
				break
			}
			m.record(ctx, o)
			if o.forward {
				m.send(ctx, o)
			}
		}
	}
}

func (m *Manager) record(ctx context.Context, o outbound) {
	for _, r := range m.recorders {
		if err := recordOne(ctx, r, o); err != nil {
			m.stats.recorderErrors.Add(1)
			m.logger.Warn("recording data failed", "resource", o.resource.Kind(), "name", o.name, "error", err)
		}
	}
}

// recordOne hands o to a single recorder. A panicking recorder is reported
// as ErrRecorderPanic so the upstream worker keeps running.
func recordOne(ctx context.Context, r Recorder, o outbound) (err error) {
	rctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRecorderPanic, p)
		}
	}()

	switch {
	case o.sensor != nil:
		return r.RecordSensorData(rctx, o.sensor)
	case o.actuator != nil:
		return r.RecordActuatorData(rctx, o.actuator)
	case o.perf != nil:
		return r.RecordSystemPerformanceData(rctx, o.perf)
	}
	return nil
}

// send publishes o on every connected transport. Each transport call is
// bounded by the configured send timeout.
func (m *Manager) send(ctx context.Context, o outbound) {
	payload, err := encodeOutbound(o)
	if err != nil {
		m.stats.upstreamFailed.Add(1)
		m.logger.Error("encoding upstream payload failed", "resource", o.resource.Kind(), "name", o.name, "error", err)
		return
	}

	attempted, sent := false, false
	if m.pubsub != nil && m.pubsub.IsConnected() {
		attempted = true
		if callWithTimeout(ctx, m.sendTimeout, func() bool {
			return m.pubsub.Publish(o.resource, payload, m.qos)
		}) {
			sent = true
		}
	}
	if m.reqresp != nil && m.reqresp.IsConnected() {
		attempted = true
		// The exchange carries its own request timeout; the worker waits for
		// whichever bound is longer.
		wait := max(m.sendTimeout, m.requestTimeout)
		if callWithTimeout(ctx, wait, func() bool {
			return m.reqresp.Post(o.resource, o.name, payload, m.confirmable, m.requestTimeout)
		}) {
			sent = true
		}
	}

	switch {
	case sent:
		m.stats.upstreamSent.Add(1)
	case attempted:
		m.stats.upstreamFailed.Add(1)
		m.logger.Warn("upstream send failed", "resource", o.resource.Kind(), "name", o.name)
	default:
		m.logger.Debug("no upstream connected, item not sent", "resource", o.resource.Kind(), "name", o.name)
	}
}

func encodeOutbound(o outbound) (payload []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			payload, err = nil, fmt.Errorf("devicedata: encoding %s panicked: %v", o.resource, p)
		}
	}()

	switch {
	case o.sensor != nil:
		return data.SensorDataToJSON(o.sensor)
	case o.actuator != nil:
		return data.ActuatorDataToJSON(o.actuator)
	case o.perf != nil:
		return data.SystemPerformanceDataToJSON(o.perf)
	default:
		return data.StatusDataToJSON(o.status)
	}
}

// callWithTimeout runs fn and waits at most timeout for its result. A call
// that outlives the timeout counts as failed; the adapter's own timeouts end
// it eventually.
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func() bool) bool {
	done := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- false
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ok := <-done:
		return ok
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
