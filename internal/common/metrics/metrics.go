// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_received_total",
			Help: "Total number of inbound messages by type",
		},
		[]string{"message_type"},
	)

	CommandsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_classified_total",
			Help: "Total number of classified commands by type and confidence",
		},
		[]string{"command_type", "confidence"},
	)

	CommandsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_failed_total",
			Help: "Total number of command handler failures by error code",
		},
		[]string{"command_type", "error_code"},
	)

	VendingCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_vending_calls_total",
			Help: "Total vending provider calls by service and result",
		},
		[]string{"service", "result"},
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_replies_sent_total",
			Help: "Total replies delivered by channel and result",
		},
		[]string{"channel", "result"},
	)

	MessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bot_message_duration_seconds",
			Help: "Duration of end-to-end message processing in seconds",
		},
		[]string{"command_type"},
	)
)
