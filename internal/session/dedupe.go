// internal/session/dedupe.go
package session

import (
	"context"
	"time"

	"forbill-bot/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const dedupeTTL = 24 * time.Hour

// Deduper drops webhook redeliveries. WhatsApp retries deliveries it thinks
// failed, so the same message ID can arrive more than once.
type Deduper struct {
	client *redis.Client
	logger logger.Logger
}

func NewDeduper(client *redis.Client, log logger.Logger) *Deduper {
	return &Deduper{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "dedupe"}),
	}
}

// FirstDelivery marks the message ID as seen and reports whether this was
// the first time. On Redis failure the message is treated as new; processing
// twice beats dropping it.
func (d *Deduper) FirstDelivery(ctx context.Context, messageID string) bool {
	ok, err := d.client.SetNX(ctx, "msg:seen:"+messageID, 1, dedupeTTL).Result()
	if err != nil {
		d.logger.WithError(err).Warn("dedupe check skipped", map[string]interface{}{
			"messageId": messageID,
		})
		return true
	}
	return ok
}
