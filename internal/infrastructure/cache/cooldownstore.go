package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = keyPrefix + "cooldown:"

// CooldownStore rate-limits an action per user with SET NX. The OTP
// regenerate button is the only caller today.
type CooldownStore struct {
	client redis.Cmdable
	action string
}

func NewCooldownStore(client redis.Cmdable, action string) *CooldownStore {
	return &CooldownStore{client: client, action: action}
}

// Acquire reports false while a previous acquisition for userID is still
// within ttl.
func (s *CooldownStore) Acquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	key := cooldownPrefix + s.action + ":" + strconv.FormatInt(userID, 10)
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown: %w", err)
	}
	return ok, nil
}
