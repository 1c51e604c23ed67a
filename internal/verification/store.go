package verification

import (
	"context"
	"sync"
	"time"

	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

// ChallengeStore holds outstanding challenge hashes keyed by owner and kind.
// A challenge is single-use and expires on its own.
type ChallengeStore interface {
	Put(ctx context.Context, ownerID id.OwnerID, kind Kind, hash string, ttl time.Duration) error
	// Get returns the stored hash or sentinel.ErrNotFound when no live
	// challenge exists.
	Get(ctx context.Context, ownerID id.OwnerID, kind Kind) (string, error)
	Delete(ctx context.Context, ownerID id.OwnerID, kind Kind) error
}

type memoryChallenge struct {
	hash      string
	expiresAt time.Time
}

// MemoryChallengeStore is the in-process fallback when Redis is not
// configured.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]memoryChallenge
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]memoryChallenge)}
}

func (s *MemoryChallengeStore) Put(ctx context.Context, ownerID id.OwnerID, kind Kind, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challengeKey(ownerID, kind)] = memoryChallenge{
		hash:      hash,
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

func (s *MemoryChallengeStore) Get(ctx context.Context, ownerID id.OwnerID, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := challengeKey(ownerID, kind)
	c, ok := s.challenges[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if requestcontext.Now(ctx).After(c.expiresAt) {
		delete(s.challenges, key)
		return "", sentinel.ErrNotFound
	}
	return c.hash, nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, ownerID id.OwnerID, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeKey(ownerID, kind))
	return nil
}

func challengeKey(ownerID id.OwnerID, kind Kind) string {
	return ownerID.String() + ":" + kind.String()
}
