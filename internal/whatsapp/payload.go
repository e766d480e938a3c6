// internal/whatsapp/payload.go
package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"forbill-bot/internal/models"
)

// WebhookPayload is the envelope Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// ExtractMessages unwraps the envelope into flat inbound messages. Button
// replies surface their button ID as the message text so they flow through
// the same classification path as typed text.
func (p *WebhookPayload) ExtractMessages() []models.InboundMessage {
	var messages []models.InboundMessage

	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range change.Value.Messages {
				text := ""
				switch msg.Type {
				case "text":
					text = msg.Text.Body
				case "interactive":
					text = msg.Interactive.ButtonReply.ID
				default:
					continue
				}

				ts := time.Now().UTC()
				if unix, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
					ts = time.Unix(unix, 0).UTC()
				}

				messages = append(messages, models.InboundMessage{
					MessageID: msg.ID,
					From:      msg.From,
					Name:      names[msg.From],
					Type:      msg.Type,
					Text:      text,
					Timestamp: ts,
				})
			}
		}
	}

	return messages
}

// VerifySignature checks Meta's X-Hub-Signature-256 header against the raw
// request body. An empty app secret disables verification (local dev).
func VerifySignature(appSecret string, body []byte, header string) bool {
	if appSecret == "" {
		return true
	}

	signature := strings.TrimPrefix(header, "sha256=")
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
