package events

import (
	"context"
	"sync"
)

// Broadcaster fans out values of type T to subscribers. Implementations must
// never block the publisher: slow consumers lose messages instead of stalling
// the hot path that emits them.
type Broadcaster[T any] interface {
	// Subscribe returns a channel receiving every subsequent broadcast.
	// The subscription is dropped when ctx is cancelled.
	Subscribe(ctx context.Context) <-chan T

	// Broadcast delivers v to all current subscribers, dropping it for any
	// subscriber whose buffer is full.
	Broadcast(ctx context.Context, v T)

	// Close shuts the broadcaster down and closes all subscriber channels.
	Close()
}

// MemoryBroadcaster is an in-process Broadcaster. Safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	buffer int
	closed bool
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to
// buffer messages each. A minimum of 1 is enforced so sends never block.
func NewMemoryBroadcaster[T any](buffer int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		subs:   make(map[chan T]struct{}),
		buffer: max(buffer, 1),
	}
}

func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.unsubscribe(ch)
		}()
	}
	return ch
}

func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// full buffer: drop rather than block the publisher
		}
	}
}

func (b *MemoryBroadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}

func (b *MemoryBroadcaster[T]) unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
