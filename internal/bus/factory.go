package bus

import (
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/workboard-backend/pkg/config"
)

type pubSubClient interface {
	BoardPublisher() *gcppubsub.Publisher
	BoardSubscription() *gcppubsub.Subscriber
}

// Deps carries the clients the networked backends need. Only the one the
// configured backend uses must be set.
type Deps struct {
	Redis  redisClient
	PubSub pubSubClient
}

// New selects the backend named by cfg.Backend.
func New(cfg config.BusConfig, deps Deps) (Bus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BusBackendMemory:
		return NewMemory(cfg.Buffer), nil
	case config.BusBackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis bus requires a redis client")
		}
		return NewRedis(deps.Redis, cfg.Channel, cfg.Buffer)
	case config.BusBackendGCP:
		if deps.PubSub == nil {
			return nil, fmt.Errorf("gcp bus requires a pubsub client")
		}
		return NewGCP(deps.PubSub.BoardPublisher(), deps.PubSub.BoardSubscription(), cfg.Buffer)
	default:
		return nil, fmt.Errorf("unsupported bus backend %q", cfg.Backend)
	}
}
