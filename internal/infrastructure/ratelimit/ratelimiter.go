// Package ratelimit counts requests per key in Redis so every instance
// shares the same budget.
package ratelimit

import (
	"context"
	"time"
)

// Rule is one window and the number of requests it admits.
type Rule struct {
	Limit  int
	Window time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, rules ...Rule) (bool, error)
	Remaining(ctx context.Context, key string, rule Rule) (int64, error)
	Reset(ctx context.Context, key string) error
}
