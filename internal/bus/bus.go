// Package bus fans work board events out to every subscriber. The memory
// backend covers a single process; redis and gcp reach every api instance.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/workboard-backend/pkg/board"
)

const (
	defaultBuffer = 64
	errBuffer     = 8
)

var ErrClosed = errors.New("bus closed")

// Bus publishes board events and hands out subscriptions to them.
type Bus interface {
	Publish(ctx context.Context, event board.Event) error
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// Subscription delivers events until Close is called or the context passed
// to Subscribe is cancelled. Delivery is at-most-once.
type Subscription struct {
	events <-chan board.Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of board events. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan board.Event {
	return s.events
}

// Errors reports undecodable messages and backend failures. The
// subscription keeps running after an error.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

func encode(event board.Event) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(event)
}

func decode(payload []byte) (board.Event, error) {
	var event board.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return board.Event{}, fmt.Errorf("failed to unmarshal board event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return board.Event{}, fmt.Errorf("invalid board event: %w", err)
	}
	return event, nil
}

// reportErr sends err without blocking; a full error buffer drops it.
func reportErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func bufferOrDefault(n int) int {
	if n <= 0 {
		return defaultBuffer
	}
	return n
}
