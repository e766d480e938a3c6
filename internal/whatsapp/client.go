// internal/whatsapp/client.go
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	httpclient "forbill-bot/internal/common/http"
	"forbill-bot/internal/common/logger"
)

// Sender is the outbound message surface the bot depends on, kept small so
// tests can substitute a fake.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []Button) error
	MarkRead(ctx context.Context, messageID string) error
}

// Button is one interactive reply button. WhatsApp allows at most three.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client talks to the Meta WhatsApp Cloud API Graph endpoint.
type Client struct {
	cfg    config.WhatsAppConfig
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg config.WhatsAppConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   httpclient.NewClient(timeout),
		logger: log.WithFields(map[string]interface{}{"component": "whatsapp"}),
	}
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        body,
		},
	}
	return c.post(ctx, payload)
}

// SendButtons sends an interactive message with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}

	actionButtons := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		actionButtons = append(actionButtons, map[string]interface{}{
			"type": "reply",
			"reply": map[string]string{
				"id":    b.ID,
				"title": b.Title,
			},
		})
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": body},
			"action": map[string]interface{}{"buttons": actionButtons},
		},
	}
	return c.post(ctx, payload)
}

// MarkRead acknowledges a message so the user sees the double blue tick.
// Failures are logged and swallowed; read receipts are not critical.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if err := c.post(ctx, payload); err != nil {
		c.logger.WithError(err).Warn("mark read failed", map[string]interface{}{
			"messageId": messageID,
		})
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewWhatsAppSendFailedError(err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.NewWhatsAppSendFailedError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return errors.NewWhatsAppSendFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		c.logger.Error("whatsapp api error", map[string]interface{}{
			"status":   res.StatusCode,
			"response": string(respBody),
		})
		return errors.NewWhatsAppSendFailedError(fmt.Errorf("status %d", res.StatusCode))
	}

	c.logger.Debug("message sent", map[string]interface{}{
		"to": payload["to"],
	})
	return nil
}
