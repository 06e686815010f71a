// Package realtime provides an in-process fan-out broker.
package realtime

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Broker fans every published value out to all current subscribers.
// A subscriber that cannot keep up loses values rather than blocking publishers.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
	closed bool
	done   chan struct{}
}

// NewBroker constructs a broker with the given per-subscriber buffer (DefaultBuffer if <= 0).
func NewBroker[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker[T]{subs: make(map[chan T]struct{}), buffer: buffer, done: make(chan struct{})}
}

// Subscribe registers a subscriber until ctx is done or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(ch)
		case <-b.done:
		}
	}()
	return ch, nil
}

// Publish delivers v to every subscriber without blocking. It returns the number
// of subscribers that received it.
func (b *Broker[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for ch := range b.subs {
		select {
		case ch <- v:
			n++
		default:
		}
	}
	return n
}

// Len returns the number of active subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscriptions are closed immediately.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Broker[T]) remove(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
