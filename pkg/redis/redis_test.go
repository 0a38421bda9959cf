package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockwatch/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), ScreeningTriggerLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, ScreeningTriggerLimit.Limit, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetDisabledCallsLoader(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	type payload struct {
		Admitted []string `json:"admitted"`
	}

	calls := 0
	var got payload
	err := cache.GetOrSet(context.Background(), LatestRunKey(), &got, TTLShort, func() (interface{}, error) {
		calls++
		return payload{Admitted: []string{"XYZ"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"XYZ"}, got.Admitted)
}

func TestLocker_Disabled(t *testing.T) {
	locker := NewLocker(Disabled(), "test")

	release, ok, err := locker.Acquire(context.Background(), "watchlist_screening", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotPanics(t, release)
}

func integrationClient(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{
		Host:    os.Getenv("REDIS_HOST"),
		Port:    os.Getenv("REDIS_PORT"),
		Enabled: true,
	}})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLocker_Exclusive(t *testing.T) {
	client := integrationClient(t)

	locker := NewLocker(client, "stockwatch-test")
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "exclusive", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "exclusive", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	release()

	release2, ok, err := locker.Acquire(ctx, "exclusive", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRateLimiter_CountsBurstSeparately(t *testing.T) {
	client := integrationClient(t)
	limiter := NewRateLimiter(client, "stockwatch-test")
	ctx := context.Background()

	cfg := RateLimitConfig{Key: "burst-" + time.Now().Format("150405.000000"), Limit: 3, Window: time.Minute}
	defer client.Redis().Del(ctx, "stockwatch-test:ratelimit:"+cfg.Key)

	// back-to-back calls usually share a millisecond timestamp
	for i := 0; i < cfg.Limit; i++ {
		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i+1)
		assert.Equal(t, cfg.Limit-i-1, remaining)
	}

	allowed, remaining, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "screening:runs:latest", LatestRunKey())
	assert.Equal(t, "watchlist:all", WatchlistKey())
	assert.Equal(t, "p:cache:k", NewCache(Disabled(), "p").key("k"))
}
