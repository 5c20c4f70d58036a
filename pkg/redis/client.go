// Package redis holds the Redis connection shared by the redis notification
// bus and the mutation rate limiter.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

const (
	keyNamespace    = "wb"
	rateLimitPrefix = "rate_limit"
)

var errNotInitialized = errors.New("redis client not initialized")

type Client struct {
	rdb *redis.Client
	now func() time.Time
}

// New connects with the pool and timeouts from cfg and pings once.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connection established")
	}
	return NewFromRaw(rdb), nil
}

// NewFromRaw wraps an already configured go-redis client.
func NewFromRaw(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, now: time.Now}
}

// URL settings win; pool and timeout settings fill whatever the URL left
// unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	url, addr := strings.TrimSpace(cfg.URL), strings.TrimSpace(cfg.Address)
	var opts *redis.Options
	switch {
	case url != "":
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case addr != "":
		opts = &redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	setDefault(&opts.DB, cfg.DB)
	setDefault(&opts.PoolSize, cfg.PoolSize)
	setDefault(&opts.MinIdleConns, cfg.MinIdleConns)
	setDefault(&opts.DialTimeout, cfg.DialTimeout)
	setDefault(&opts.ReadTimeout, cfg.ReadTimeout)
	setDefault(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setDefault[T comparable](dst *T, fallback T) {
	var zero T
	if *dst == zero {
		*dst = fallback
	}
}

// Publish sends payload to every subscriber of channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a dedicated pub/sub connection for channel and waits for
// the subscription confirmation so that no publish after return is missed.
func (c *Client) Subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	if c == nil || c.rdb == nil {
		return nil, errNotInitialized
	}
	ps := c.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return ps, nil
}

// FixedWindowAllow counts a hit for scope in the current window and reports
// whether the count is still within limit. Windows are aligned to the clock
// and each has its own key, so the increment and its expiry go out in one
// MULTI/EXEC and a crash cannot leave a counter without a TTL.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if c == nil || c.rdb == nil {
		return false, 0, errNotInitialized
	}
	if window <= 0 {
		return false, 0, fmt.Errorf("rate limit window must be positive, got %s", window)
	}

	key := c.windowKey(scope, c.now().Truncate(window))
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	count := incr.Val()
	return count <= limit, count, nil
}

// ChannelKey returns the namespaced pub/sub channel for name.
func (c *Client) ChannelKey(name string) string {
	return buildKey(name)
}

func (c *Client) windowKey(scope string, start time.Time) string {
	return buildKey(rateLimitPrefix, scope, strconv.FormatInt(start.Unix(), 10))
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ":")
}
