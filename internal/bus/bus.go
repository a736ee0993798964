// Package bus implements the process-wide broadcast event bus described in
// the spec: a bounded-buffer fan-out channel with a single required event
// (Shutdown), built as a sum type so future variants can be added without
// breaking subscribers that only care about Shutdown.
package bus

import (
	"sync"
	"time"
)

// EventKind tags the variant of an Event.
type EventKind int

const (
	// Shutdown is broadcast exactly once, when the daemon begins its
	// cooperative shutdown sequence.
	Shutdown EventKind = iota
)

// Event is the sum type carried over the bus. It is currently a single
// variant (Shutdown) but is structured so a later variant can be added
// without changing the Bus interface.
type Event struct {
	Kind EventKind
}

// MinBufferSize is the minimum per-subscriber channel capacity the spec
// requires (≥24), so a burst of events can't be lost to a slow subscriber.
const MinBufferSize = 24

// Bus is a broadcast channel of Events with a bounded per-subscriber buffer.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	bufSize     int
}

// New creates a Bus whose subscriber channels are sized bufSize, raised to
// MinBufferSize if smaller.
func New(bufSize int) *Bus {
	if bufSize < MinBufferSize {
		bufSize = MinBufferSize
	}
	return &Bus{bufSize: bufSize}
}

// Subscribe registers a new receiver and returns its channel. The channel is
// never closed by the bus itself (subscribers are expected to stop reading
// once they've observed Shutdown and returned); use Unsubscribe to
// explicitly drop one out of the receiver count.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.bufSize)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel from the fan-out list.
// It is safe to call even if the channel has already been removed.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Broadcast sends event to every current subscriber. Sends are non-blocking:
// a subscriber whose buffer is full is skipped rather than stalling the
// broadcaster, since Shutdown is idempotent and only needs to be observed
// once per subscriber loop iteration.
func (b *Bus) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// ReceiverCount returns the number of currently registered subscribers.
func (b *Bus) ReceiverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// DrainPollInterval is the cadence at which Drain polls ReceiverCount.
const DrainPollInterval = 100 * time.Millisecond

// Drain blocks until ReceiverCount reaches zero, polling at
// DrainPollInterval. Every supervisor is expected to call Unsubscribe once
// it has acted on the Shutdown event and is about to return, so this
// guarantees every worker observed the event before the caller proceeds.
func (b *Bus) Drain() {
	for b.ReceiverCount() > 0 {
		time.Sleep(DrainPollInterval)
	}
}
