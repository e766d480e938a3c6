// internal/session/ratelimit.go
package session

import (
	"context"
	"fmt"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces per-sender message limits over fixed windows backed
// by Redis counters. Limits are configured per minute and per hour.
type RateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	logger logger.Logger
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "ratelimit"}),
	}
}

// Allow counts one message from the sender and reports whether it is within
// both windows. The counters are incremented before checking, so a rejected
// message still consumes quota.
func (r *RateLimiter) Allow(ctx context.Context, phone string) error {
	if err := r.checkWindow(ctx, phone, "minute", time.Minute, r.cfg.PerMinute); err != nil {
		return err
	}
	return r.checkWindow(ctx, phone, "hour", time.Hour, r.cfg.PerHour)
}

func (r *RateLimiter) checkWindow(ctx context.Context, phone, window string, ttl time.Duration, limit int) error {
	if limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", phone, window)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down must not block the bot.
		r.logger.WithError(err).Warn("rate limit check skipped", map[string]interface{}{
			"phone": phone,
		})
		return nil
	}

	if count == 1 {
		r.client.Expire(ctx, key, ttl)
	}

	if count > int64(limit) {
		r.logger.Warn("rate limit exceeded", map[string]interface{}{
			"phone":  phone,
			"window": window,
			"count":  count,
		})
		return errors.NewRateLimitedError(phone)
	}

	return nil
}
