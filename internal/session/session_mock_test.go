// internal/session/session_mock_test.go
//
// Error-path tests with a mocked Redis client. miniredis covers the happy
// paths; these pin down the exact fail-open behavior on command errors.
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_IncrErrorFailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 5, PerHour: 50}, logger.NewTestLogger(t))

	mock.ExpectIncr("ratelimit:2348012345678:minute").SetErr(errors.New("connection refused"))
	mock.ExpectIncr("ratelimit:2348012345678:hour").SetErr(errors.New("connection refused"))

	assert.NoError(t, limiter.Allow(context.Background(), "2348012345678"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_ExpireSetOnFirstHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 5, PerHour: 50}, logger.NewTestLogger(t))

	mock.ExpectIncr("ratelimit:2348012345678:minute").SetVal(1)
	mock.ExpectExpire("ratelimit:2348012345678:minute", time.Minute).SetVal(true)
	mock.ExpectIncr("ratelimit:2348012345678:hour").SetVal(1)
	mock.ExpectExpire("ratelimit:2348012345678:hour", time.Hour).SetVal(true)

	assert.NoError(t, limiter.Allow(context.Background(), "2348012345678"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_HourWindowConsultedAfterMinute(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, config.RateLimitConfig{PerMinute: 5, PerHour: 50}, logger.NewTestLogger(t))

	mock.ExpectIncr("ratelimit:2348012345678:minute").SetVal(3)
	mock.ExpectIncr("ratelimit:2348012345678:hour").SetVal(51)

	assert.Error(t, limiter.Allow(context.Background(), "2348012345678"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeduper_SetNXErrorFailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	deduper := NewDeduper(client, logger.NewTestLogger(t))

	mock.ExpectSetNX("msg:seen:wamid.1", 1, 24*time.Hour).SetErr(errors.New("connection refused"))

	assert.True(t, deduper.FirstDelivery(context.Background(), "wamid.1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
