package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

// ErrSubmissionInFlight is returned when a second submission starts while
// one is already running for the same owner.
var errInFlight = dErrors.New(dErrors.CodeConflict, "a submission is already in progress")

// Guard serializes submissions per owner. Acquire returns a release func on
// success and a conflict error when a submission is already running.
type Guard interface {
	Acquire(ctx context.Context, ownerID id.OwnerID) (func(), error)
}

// MemoryGuard is the single-instance guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[id.OwnerID]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[id.OwnerID]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, ownerID id.OwnerID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[ownerID]; ok {
		return nil, errInFlight
	}
	g.inFlight[ownerID] = struct{}{}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.inFlight, ownerID)
	}, nil
}

const guardKeyPrefix = "submit:inflight:"

// RedisGuard serializes submissions across instances with SETNX. The TTL
// bounds how long a crashed submission can block its owner.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, ownerID id.OwnerID) (func(), error) {
	key := guardKeyPrefix + ownerID.String()
	ok, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submission guard: %w", err)
	}
	if !ok {
		return nil, errInFlight
	}
	return func() {
		_ = g.client.Del(context.Background(), key).Err()
	}, nil
}
