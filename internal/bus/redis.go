package bus

import (
	"context"
	"fmt"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/workboard-backend/pkg/board"
)

type redisClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (*goredis.PubSub, error)
	ChannelKey(name string) string
}

// RedisBus carries events over a redis PUBLISH/SUBSCRIBE channel so every
// api instance sees every event.
type RedisBus struct {
	client  redisClient
	channel string
	buffer  int
	closed  atomic.Bool
}

// NewRedis builds a redis-backed bus on the namespaced channel for name.
func NewRedis(client redisClient, name string, buffer int) (*RedisBus, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if name == "" {
		return nil, fmt.Errorf("channel name required")
	}
	return &RedisBus{
		client:  client,
		channel: client.ChannelKey(name),
		buffer:  bufferOrDefault(buffer),
	}, nil
}

// Channel returns the redis channel events travel on.
func (b *RedisBus) Channel() string {
	return b.channel
}

func (b *RedisBus) Publish(ctx context.Context, event board.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	pubsub, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return nil, err
	}

	eventsChan := make(chan board.Event, b.buffer)
	errorsChan := make(chan error, errBuffer)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, err := decode([]byte(msg.Payload))
				if err != nil {
					reportErr(errorsChan, err)
					continue
				}
				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// Close rejects further publishes. The shared redis client is owned and
// closed by the caller.
func (b *RedisBus) Close() error {
	b.closed.Store(true)
	return nil
}
