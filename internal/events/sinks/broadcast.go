package sinks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// Broadcaster fans change events out to in-process subscribers such as
// websocket connections. Slow subscribers lose events rather than stall the
// hub.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[uint64]chan progress.ChangeEvent
	nextID  uint64
	closed  bool
	dropped atomic.Int64
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan progress.ChangeEvent)}
}

// Subscribe registers a subscriber with the given channel buffer. The returned
// cancel func unregisters it and closes the channel; it is safe to call more
// than once. After Close, Subscribe returns an already-closed channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan progress.ChangeEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan progress.ChangeEvent, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return ch, func() { b.unsubscribe(id) }
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped reports how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Consume delivers each event to every subscriber without blocking.
func (b *Broadcaster) Consume(_ context.Context, batch []progress.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, evt := range batch {
		for _, ch := range b.subs {
			select {
			case ch <- evt:
			default:
				b.dropped.Add(1)
			}
		}
	}
	return nil
}

// Close ends every subscription.
func (b *Broadcaster) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
