package transport

import (
	"sync/atomic"

	"github.com/nerrad567/piot-cda/internal/data"
)

// DefaultInboxSize is used when NewInbox is given a non-positive size.
const DefaultInboxSize = 64

// Message is one inbound payload.
type Message struct {
	Resource data.ResourceName
	Payload  []byte
}

// Inbox is a bounded queue of inbound messages. It implements
// MessageListener so adapters can deliver to it directly.
//
// When the queue is full the newest message is dropped: the manager is
// already behind, and older commands were accepted first.
//
// Thread Safety:
//   - HandleIncomingMessage may be called from any number of goroutines.
//   - C is meant to be drained by a single consumer.
type Inbox struct {
	ch       chan Message
	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// NewInbox creates an inbox holding up to size messages.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{ch: make(chan Message, size)}
}

// HandleIncomingMessage enqueues a copy of payload. It returns false for an
// unknown resource or when the inbox is full.
func (i *Inbox) HandleIncomingMessage(resource data.ResourceName, payload []byte) bool {
	if !resource.Valid() {
		i.dropped.Add(1)
		return false
	}

	msg := Message{Resource: resource, Payload: append([]byte(nil), payload...)}
	select {
	case i.ch <- msg:
		i.accepted.Add(1)
		return true
	default:
		i.dropped.Add(1)
		return false
	}
}

// C returns the receive side of the queue.
func (i *Inbox) C() <-chan Message {
	return i.ch
}

// Len returns the number of queued messages.
func (i *Inbox) Len() int {
	return len(i.ch)
}

// Cap returns the queue capacity.
func (i *Inbox) Cap() int {
	return cap(i.ch)
}

// Accepted returns how many messages were queued.
func (i *Inbox) Accepted() uint64 {
	return i.accepted.Load()
}

// Dropped returns how many messages were refused.
func (i *Inbox) Dropped() uint64 {
	return i.dropped.Load()
}
