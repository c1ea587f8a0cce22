package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/gatekeeper/internal/application/consentform"
)

const consentDraftPrefix = keyPrefix + "consent:draft:"

var _ consentform.DraftStore = (*ConsentDraftStore)(nil)

// ConsentDraftStore keeps half-filled consent forms. Expired drafts simply
// vanish and the member starts over.
type ConsentDraftStore struct {
	client redis.Cmdable
}

func NewConsentDraftStore(client redis.Cmdable) *ConsentDraftStore {
	return &ConsentDraftStore{client: client}
}

func draftKey(userID int64) string {
	return consentDraftPrefix + strconv.FormatInt(userID, 10)
}

func (s *ConsentDraftStore) Get(ctx context.Context, userID int64) (*consentform.Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get consent draft: %w", err)
	}

	var d consentform.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode consent draft: %w", err)
	}
	return &d, nil
}

func (s *ConsentDraftStore) Save(ctx context.Context, d *consentform.Draft, ttl time.Duration) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode consent draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save consent draft: %w", err)
	}
	return nil
}

func (s *ConsentDraftStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete consent draft: %w", err)
	}
	return nil
}
