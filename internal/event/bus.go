// Package event provides a best-effort broadcast bus. Each subscriber
// owns an independent bounded buffer; a subscriber that falls behind
// loses its oldest unread events instead of stalling the publisher.
// Consumers that need strong consistency must resynchronize from the
// source of truth after observing a gap.
package event

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultCapacity is the per-subscriber buffer size used when no
// capacity is configured.
const DefaultCapacity = 100

// Bus fans events out to any number of subscribers. Publish never
// blocks: delivery to each subscriber is at-most-once.
type Bus[T any] struct {
	mu        sync.RWMutex
	receivers map[string]*Receiver[T]
	capacity  int
	closed    bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	capacity int
}

// WithCapacity sets the per-subscriber buffer size.
func WithCapacity(n int) Option {
	return func(c *busConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// NewBus creates a bus with the given options.
func NewBus[T any](opts ...Option) *Bus[T] {
	cfg := busConfig{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus[T]{
		receivers: make(map[string]*Receiver[T]),
		capacity:  cfg.capacity,
	}
}

// Subscribe registers a new receiver. The receiver starts with an empty
// buffer; it only observes events published after subscription.
func (b *Bus[T]) Subscribe() *Receiver[T] {
	r := &Receiver[T]{
		id:  uuid.New().String(),
		ch:  make(chan T, b.capacity),
		bus: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(r.ch)
		r.closed.Store(true)
		return r
	}
	b.receivers[r.id] = r
	return r
}

// Publish delivers v to every active subscriber. When a subscriber's
// buffer is full the oldest unread event is discarded to make room and
// the receiver's drop counter is incremented.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	b.published.Add(1)
	for _, r := range b.receivers {
		select {
		case r.ch <- v:
			continue
		default:
		}

		// Buffer full: evict the oldest unread event, then retry once.
		// If a concurrent reader raced us for the slot the retry still
		// wins; if another publisher refilled the buffer the event is
		// counted as dropped.
		select {
		case <-r.ch:
			r.dropped.Add(1)
			b.dropped.Add(1)
		default:
		}
		select {
		case r.ch <- v:
		default:
			r.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active receivers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.receivers)
}

// Published returns the total number of events published.
func (b *Bus[T]) Published() uint64 { return b.published.Load() }

// Dropped returns the total number of events dropped across all
// receivers.
func (b *Bus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close shuts down the bus and closes every receiver channel. Publish
// becomes a no-op.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, r := range b.receivers {
		if !r.closed.Swap(true) {
			close(r.ch)
		}
		delete(b.receivers, id)
	}
}

// remove detaches a receiver from the bus.
func (b *Bus[T]) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receivers[id]; ok {
		delete(b.receivers, id)
		if !r.closed.Swap(true) {
			close(r.ch)
		}
	}
}

// Receiver is an independent cursor into the event stream.
type Receiver[T any] struct {
	id      string
	ch      chan T
	bus     *Bus[T]
	dropped atomic.Uint64
	closed  atomic.Bool
}

// ID returns the unique receiver identifier.
func (r *Receiver[T]) ID() string { return r.id }

// C returns the receive channel. It is closed when the receiver or the
// bus is closed.
func (r *Receiver[T]) C() <-chan T { return r.ch }

// Dropped returns how many events this receiver has lost to
// backpressure. A nonzero delta between reads indicates a gap in the
// stream.
func (r *Receiver[T]) Dropped() uint64 { return r.dropped.Load() }

// Close unsubscribes the receiver and closes its channel.
func (r *Receiver[T]) Close() {
	r.bus.remove(r.id)
}
