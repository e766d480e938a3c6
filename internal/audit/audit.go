// internal/audit/audit.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// Auditor writes webhook traffic and classification outcomes to an
// Elasticsearch index for offline inspection. Audit failures are reported
// to the caller but must never block message handling.
type Auditor struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Auditor {
	return &Auditor{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Event is one audit document.
type Event struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	Phone       string                 `json:"phone,omitempty"`
	MessageID   string                 `json:"messageId,omitempty"`
	CommandType string                 `json:"commandType,omitempty"`
	Confidence  string                 `json:"confidence,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// RecordWebhook indexes a raw webhook delivery.
func (a *Auditor) RecordWebhook(ctx context.Context, payload map[string]interface{}) error {
	return a.indexEvent(ctx, Event{
		ID:        uuid.New().String(),
		Kind:      "webhook_received",
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// RecordClassification indexes the outcome of classifying one message.
func (a *Auditor) RecordClassification(ctx context.Context, msg models.InboundMessage, result *intent.ParsedCommand) error {
	event := Event{
		ID:          uuid.New().String(),
		Kind:        "message_classified",
		Phone:       msg.From,
		MessageID:   msg.MessageID,
		CommandType: result.CommandType.String(),
		Confidence:  string(result.Confidence),
		Timestamp:   time.Now().UTC(),
	}
	if verr := result.ValidationError(); verr != nil {
		event.Payload = map[string]interface{}{
			"validationError": verr.Code,
		}
	}
	return a.indexEvent(ctx, event)
}

func (a *Auditor) indexEvent(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal audit event", err)
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: event.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, a.client)
	if err != nil {
		return &errors.StandardError{
			Code:      errors.ErrCodeAuditIndexFailed,
			Message:   "Failed to index audit event",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now(),
		}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &errors.StandardError{
			Code:      errors.ErrCodeAuditIndexFailed,
			Message:   "Audit index request rejected",
			Details:   fmt.Sprintf("status: %s", res.Status()),
			Retryable: true,
			Timestamp: time.Now(),
		}
	}

	a.logger.Debug("audit event indexed", map[string]interface{}{
		"kind": event.Kind,
		"id":   event.ID,
	})
	return nil
}
