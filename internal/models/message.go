// internal/models/message.go
package models

import "time"

// InboundMessage is one user message after unwrapping the webhook envelope.
type InboundMessage struct {
	MessageID string    `json:"messageId"`
	From      string    `json:"from"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
