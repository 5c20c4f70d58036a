package bus

import (
	"context"
	"sync"

	"github.com/angelmondragon/workboard-backend/pkg/board"
)

// MemoryBus fans events out to subscribers in the same process.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	buffer int
	closed bool
}

type memorySub struct {
	events chan board.Event
	errs   chan error
	done   chan struct{}
}

// NewMemory returns an in-process bus. buffer sizes each subscriber's queue;
// a full queue drops the event for that subscriber only.
func NewMemory(buffer int) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[*memorySub]struct{}),
		buffer: bufferOrDefault(buffer),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, event board.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for sub := range b.subs {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (*Subscription, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	sub := &memorySub{
		events: make(chan board.Event, b.buffer),
		errs:   make(chan error, errBuffer),
		done:   make(chan struct{}),
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-subCtx.Done():
		case <-sub.done:
		}
		b.remove(sub)
	}()

	return &Subscription{
		events: sub.events,
		errors: sub.errs,
		cancel: cancel,
	}, nil
}

func (b *MemoryBus) remove(sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.events)
	close(sub.errs)
}

// Close ends every open subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySub, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	for _, sub := range subs {
		b.remove(sub)
	}
	return nil
}

// Subscribers reports the number of open subscriptions.
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
