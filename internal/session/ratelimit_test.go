// internal/session/ratelimit_test.go
package session

import (
	"context"
	"testing"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	client := newTestRedis(t)
	rl := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 3, PerHour: 10}, logger.NewTestLogger(t))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.NoError(t, rl.Allow(ctx, "2348012345678"))
	}
}

func TestRateLimiter_RejectsOverMinuteLimit(t *testing.T) {
	client := newTestRedis(t)
	rl := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 2, PerHour: 100}, logger.NewTestLogger(t))

	ctx := context.Background()
	require.NoError(t, rl.Allow(ctx, "2348012345678"))
	require.NoError(t, rl.Allow(ctx, "2348012345678"))

	err := rl.Allow(ctx, "2348012345678")
	require.Error(t, err)

	serr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRateLimited, serr.Code)
}

func TestRateLimiter_RejectsOverHourLimit(t *testing.T) {
	client := newTestRedis(t)
	rl := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 100, PerHour: 2}, logger.NewTestLogger(t))

	ctx := context.Background()
	require.NoError(t, rl.Allow(ctx, "2348012345678"))
	require.NoError(t, rl.Allow(ctx, "2348012345678"))
	assert.Error(t, rl.Allow(ctx, "2348012345678"))
}

func TestRateLimiter_SendersAreIndependent(t *testing.T) {
	client := newTestRedis(t)
	rl := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 1, PerHour: 10}, logger.NewTestLogger(t))

	ctx := context.Background()
	require.NoError(t, rl.Allow(ctx, "2348011111111"))
	require.Error(t, rl.Allow(ctx, "2348011111111"))
	assert.NoError(t, rl.Allow(ctx, "2348022222222"))
}

func TestRateLimiter_DisabledWhenZero(t *testing.T) {
	client := newTestRedis(t)
	rl := NewRateLimiter(client, config.RateLimitConfig{}, logger.NewTestLogger(t))

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		assert.NoError(t, rl.Allow(ctx, "2348012345678"))
	}
}

func TestRateLimiter_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 1, PerHour: 1}, logger.NewTestLogger(t))

	mr.Close()

	assert.NoError(t, rl.Allow(context.Background(), "2348012345678"))
}

func TestDeduper_FirstDelivery(t *testing.T) {
	client := newTestRedis(t)
	d := NewDeduper(client, logger.NewTestLogger(t))

	ctx := context.Background()
	assert.True(t, d.FirstDelivery(ctx, "wamid.abc"))
	assert.False(t, d.FirstDelivery(ctx, "wamid.abc"))
	assert.True(t, d.FirstDelivery(ctx, "wamid.def"))
}

func TestDeduper_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(client, logger.NewTestLogger(t))

	mr.Close()

	assert.True(t, d.FirstDelivery(context.Background(), "wamid.abc"))
}
