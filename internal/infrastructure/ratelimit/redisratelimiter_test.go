package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewRedisRateLimiter(setupTestRedis(t), "test").WithClock(func() time.Time { return now })
	rule := Rule{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		allowed, err := limiter.Allow(ctx, "1.2.3.4", rule)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d", i+1)
	}

	now = now.Add(time.Second)
	allowed, err := limiter.Allow(ctx, "1.2.3.4", rule)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "5.6.7.8", rule)
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")

	now = now.Add(time.Minute)
	allowed, err = limiter.Allow(ctx, "1.2.3.4", rule)
	require.NoError(t, err)
	assert.True(t, allowed, "window slides")
}

func TestRedisRateLimiter_MultipleRules(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewRedisRateLimiter(setupTestRedis(t), "").WithClock(func() time.Time { return now })
	perMinute := Rule{Limit: 10, Window: time.Minute}
	perHour := Rule{Limit: 2, Window: time.Hour}

	for i := 0; i < 2; i++ {
		now = now.Add(time.Second)
		allowed, err := limiter.Allow(ctx, "k", perMinute, perHour)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "k", perMinute, perHour)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiter_RemainingAndReset(t *testing.T) {
	ctx := context.Background()
	limiter := NewRedisRateLimiter(setupTestRedis(t), "test")
	rule := Rule{Limit: 5, Window: time.Minute}

	_, err := limiter.Allow(ctx, "user", rule)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "user", rule)
	require.NoError(t, err)

	remaining, err := limiter.Remaining(ctx, "user", rule)
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)

	require.NoError(t, limiter.Reset(ctx, "user"))
	remaining, err = limiter.Remaining(ctx, "user", rule)
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining)
}

func TestRedisRateLimiter_IgnoresEmptyRules(t *testing.T) {
	limiter := NewRedisRateLimiter(setupTestRedis(t), "test")
	allowed, err := limiter.Allow(context.Background(), "k", Rule{})
	require.NoError(t, err)
	assert.True(t, allowed)
}
