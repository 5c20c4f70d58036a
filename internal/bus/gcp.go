package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/workboard-backend/pkg/board"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// GCPBus publishes to a shared Pub/Sub topic and consumes from a
// per-instance subscription.
type GCPBus struct {
	pub    publisher
	recv   receiver
	stop   func()
	buffer int
	closed atomic.Bool
}

// NewGCP wires the bus to a topic publisher and this instance's subscriber.
func NewGCP(pub *gcppubsub.Publisher, sub *gcppubsub.Subscriber, buffer int) (*GCPBus, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if sub == nil {
		return nil, errors.New("pubsub subscriber required")
	}
	return newGCPBus(&gcpPublisher{Publisher: pub}, sub, pub.Stop, buffer), nil
}

func newGCPBus(pub publisher, recv receiver, stop func(), buffer int) *GCPBus {
	if stop == nil {
		stop = func() {}
	}
	return &GCPBus{pub: pub, recv: recv, stop: stop, buffer: bufferOrDefault(buffer)}
}

func (b *GCPBus) Publish(ctx context.Context, event board.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":      string(event.Type),
			"organization_id": event.OrganizationID.String(),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := b.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Subscribe starts receiving on the instance subscription. Every message is
// acked, including undecodable ones, since redelivery cannot fix them.
func (b *GCPBus) Subscribe(ctx context.Context) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	eventsChan := make(chan board.Event, b.buffer)
	errorsChan := make(chan error, errBuffer)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)

		err := b.recv.Receive(subCtx, func(ctx context.Context, msg *gcppubsub.Message) {
			msg.Ack()
			event, err := decode(msg.Data)
			if err != nil {
				reportErr(errorsChan, err)
				return
			}
			select {
			case eventsChan <- event:
			case <-ctx.Done():
			}
		})
		if err != nil && subCtx.Err() == nil {
			reportErr(errorsChan, fmt.Errorf("pubsub receive: %w", err))
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// Close flushes pending publishes.
func (b *GCPBus) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.stop()
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
