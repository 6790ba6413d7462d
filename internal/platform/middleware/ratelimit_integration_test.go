//go:build integration

package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votedeck/pkg/platform/rediscache"
	"votedeck/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func TestRedisLimiterSuite(t *testing.T) {
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) TestAllowWithinLimit() {
	ctx := context.Background()
	limiter := NewRedisLimiter(s.redis.Client, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.True(ok, "request %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(ok, "fourth request should be rejected")
}

func (s *RedisLimiterSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	limiter := NewRedisLimiter(s.redis.Client, 1, time.Minute)

	ok, err := limiter.Allow(ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = limiter.Allow(ctx, "10.0.0.2")
	s.Require().NoError(err)
	s.True(ok, "a different client must not share the bucket")
}

func (s *RedisLimiterSuite) TestCacheRoundTrip() {
	ctx := context.Background()
	cache := rediscache.New(s.redis.Client)

	_, err := cache.Get(ctx, "stats:dashboard")
	s.ErrorIs(err, rediscache.ErrMiss)

	s.Require().NoError(cache.Set(ctx, "stats:dashboard", []byte(`{"total_voters":3}`), time.Minute))

	value, err := cache.Get(ctx, "stats:dashboard")
	s.Require().NoError(err)
	s.JSONEq(`{"total_voters":3}`, string(value))

	s.Require().NoError(cache.Delete(ctx, "stats:dashboard"))
	_, err = cache.Get(ctx, "stats:dashboard")
	s.ErrorIs(err, rediscache.ErrMiss)
}
