//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"deedblock/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestAllowsUpToLimit() {
	for i := 0; i < 5; i++ {
		result, err := s.store.Allow(s.ctx, "verify:owner:seller_otp", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(4-i, result.Remaining)
	}

	result, err := s.store.Allow(s.ctx, "verify:owner:seller_otp", 5, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	result, err := s.store.Allow(s.ctx, "verify:owner:payment", 1, time.Second)
	s.Require().NoError(err)
	s.Require().True(result.Allowed)

	result, err = s.store.Allow(s.ctx, "verify:owner:payment", 1, time.Second)
	s.Require().NoError(err)
	s.Require().False(result.Allowed)

	time.Sleep(1100 * time.Millisecond)

	result, err = s.store.Allow(s.ctx, "verify:owner:payment", 1, time.Second)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
