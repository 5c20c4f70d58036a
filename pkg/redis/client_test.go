package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/workboard-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewFromRaw(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	now := time.Date(2026, 1, 15, 9, 30, 10, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "org-1", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, i, count)
	}

	allowed, count, err := client.FixedWindowAllow(ctx, "org-1", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, int64(3), count)

	key := client.windowKey("org-1", now.Truncate(time.Minute))
	require.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	// Other scopes count separately.
	allowed, count, err = client.FixedWindowAllow(ctx, "org-2", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, int64(1), count)

	// The next window starts a fresh counter.
	now = now.Add(time.Minute)
	allowed, count, err = client.FixedWindowAllow(ctx, "org-1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, int64(1), count)
}

func TestFixedWindowAllowRejectsBadWindow(t *testing.T) {
	client, _ := newTestClient(t)
	_, _, err := client.FixedWindowAllow(context.Background(), "org-1", 2, 0)
	require.Error(t, err)

	var nilClient *Client
	_, _, err = nilClient.FixedWindowAllow(context.Background(), "org-1", 2, time.Minute)
	require.ErrorIs(t, err, errNotInitialized)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "wb:workboard", client.ChannelKey("workboard"))
	require.Equal(t, "wb:rate_limit:scope:60", client.windowKey("scope", time.Unix(60, 0)))
	require.Equal(t, "wb:a:b", buildKey("a", " ", " b "))
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	ps, err := client.Subscribe(ctx, client.ChannelKey("workboard"))
	require.NoError(t, err)
	defer ps.Close()

	require.NoError(t, client.Publish(ctx, client.ChannelKey("workboard"), []byte(`{"type":"assignment_created"}`)))

	select {
	case msg := <-ps.Channel():
		require.Equal(t, "wb:workboard", msg.Channel)
		require.JSONEq(t, `{"type":"assignment_created"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{PoolSize: 5})
	require.Error(t, err, "neither url nor address is set")

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache:6380/3",
		DB:          7,
		PoolSize:    12,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 3, opts.DB, "url db wins")
	require.Equal(t, "secret", opts.Password)
	require.Equal(t, 12, opts.PoolSize)
	require.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: " localhost:6379 ", DB: 2})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 2, opts.DB)
}
