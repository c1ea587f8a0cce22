package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const supportDraftPrefix = keyPrefix + "support:draft:"

// SupportDraftStore remembers the ticket category a member picked while the
// bot waits for the description.
type SupportDraftStore struct {
	client redis.Cmdable
}

func NewSupportDraftStore(client redis.Cmdable) *SupportDraftStore {
	return &SupportDraftStore{client: client}
}

func supportKey(userID int64) string {
	return supportDraftPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the pending category, or "" when none.
func (s *SupportDraftStore) Get(ctx context.Context, userID int64) (string, error) {
	category, err := s.client.Get(ctx, supportKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get support draft: %w", err)
	}
	return category, nil
}

func (s *SupportDraftStore) Save(ctx context.Context, userID int64, category string, ttl time.Duration) error {
	if err := s.client.Set(ctx, supportKey(userID), category, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save support draft: %w", err)
	}
	return nil
}

func (s *SupportDraftStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, supportKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete support draft: %w", err)
	}
	return nil
}
