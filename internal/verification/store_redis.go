package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
)

const challengeKeyPrefix = "verify:challenge:"

// RedisChallengeStore shares outstanding challenges across instances. Expiry
// rides on the Redis key TTL.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, ownerID id.OwnerID, kind Kind, hash string, ttl time.Duration) error {
	key := challengeKeyPrefix + challengeKey(ownerID, kind)
	if err := s.client.Set(ctx, key, hash, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Get(ctx context.Context, ownerID id.OwnerID, kind Kind) (string, error) {
	key := challengeKeyPrefix + challengeKey(ownerID, kind)
	hash, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load challenge: %w", err)
	}
	return hash, nil
}

func (s *RedisChallengeStore) Delete(ctx context.Context, ownerID id.OwnerID, kind Kind) error {
	key := challengeKeyPrefix + challengeKey(ownerID, kind)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}
