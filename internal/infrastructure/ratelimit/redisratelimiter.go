package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a sliding-window limiter. Each hit is a sorted-set
// member scored by its timestamp.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix, now: time.Now}
}

// WithClock overrides the time source.
func (l *RedisRateLimiter) WithClock(now func() time.Time) *RedisRateLimiter {
	l.now = now
	return l
}

// Allow records a hit under key and reports whether every rule still has
// room. A refused hit is not counted.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, rules ...Rule) (bool, error) {
	now := l.now()
	for _, rule := range rules {
		if rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		allowed, err := l.checkWindow(ctx, key, rule, now)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (l *RedisRateLimiter) checkWindow(ctx context.Context, key string, rule Rule, now time.Time) (bool, error) {
	redisKey := l.key(key, rule.Window)
	windowStart := now.Add(-rule.Window).UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to read rate window: %w", err)
	}
	if zcard.Val() >= int64(rule.Limit) {
		return false, nil
	}

	nowNano := now.UnixNano()
	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowNano), Member: nowNano})
	pipe.Expire(ctx, redisKey, rule.Window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record hit: %w", err)
	}
	return true, nil
}

// Remaining returns how many hits rule still admits for key.
func (l *RedisRateLimiter) Remaining(ctx context.Context, key string, rule Rule) (int64, error) {
	redisKey := l.key(key, rule.Window)
	windowStart := l.now().Add(-rule.Window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to get remaining: %w", err)
	}

	remaining := int64(rule.Limit) - zcard.Val()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset drops every window recorded for key.
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	pattern := fmt.Sprintf("%s:%s:*", l.prefix, key)

	iter := l.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return nil
}

func (l *RedisRateLimiter) key(identifier string, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, identifier, window.String())
}
