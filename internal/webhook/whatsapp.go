// internal/webhook/whatsapp.go
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"forbill-bot/internal/common/metrics"
	"forbill-bot/internal/common/validation"
	"forbill-bot/internal/models"
	"forbill-bot/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// VerifyWhatsApp answers the Meta subscription handshake: echo the challenge
// when the verify token matches, 403 otherwise.
func (s *Server) VerifyWhatsApp(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == s.cfg.WhatsApp.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	s.logger.Warn("webhook verification rejected", map[string]interface{}{
		"mode": mode,
	})
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

// ReceiveWhatsApp handles inbound message notifications. Meta retries on any
// non-200, so payload problems after signature verification are acknowledged
// and logged rather than bounced.
func (s *Server) ReceiveWhatsApp(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Hub-Signature-256")
	if !whatsapp.VerifySignature(s.cfg.WhatsApp.AppSecret, body, signature) {
		s.logger.Warn("webhook signature rejected", nil)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.logger.Warn("webhook body not JSON", map[string]interface{}{"error": err})
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if result := validation.ValidateInput(raw, validation.WebhookEntrySchema); !result.Valid {
		s.logger.Warn("webhook envelope rejected", map[string]interface{}{
			"errors": result.GetErrorMessages(),
		})
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if s.auditor != nil {
		if err := s.auditor.RecordWebhook(c.Request.Context(), raw); err != nil {
			s.logger.Warn("webhook audit failed", map[string]interface{}{"error": err})
		}
	}

	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	for _, msg := range payload.ExtractMessages() {
		s.processMessage(c, msg)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) processMessage(c *gin.Context, msg models.InboundMessage) {
	ctx := c.Request.Context()
	metrics.MessagesReceived.WithLabelValues(msg.Type).Inc()

	if s.deduper != nil && !s.deduper.FirstDelivery(ctx, msg.MessageID) {
		s.logger.Debug("duplicate delivery skipped", map[string]interface{}{
			"messageId": msg.MessageID,
		})
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, msg.From); err != nil {
			s.logger.Info("sender rate limited", map[string]interface{}{
				"phone": msg.From,
			})
			return
		}
	}

	// Read receipt is cosmetic, failures are swallowed by the client.
	s.sender.MarkRead(ctx, msg.MessageID)

	user, err := s.store.GetOrCreateUser(ctx, msg.From, msg.Name)
	if err != nil {
		s.logger.Error("user lookup failed", map[string]interface{}{
			"phone": msg.From,
			"error": err,
		})
		return
	}
	if user.IsBlocked {
		s.logger.Warn("blocked user ignored", map[string]interface{}{"phone": msg.From})
		return
	}

	if err := s.store.TouchLastActivity(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("last activity not updated", map[string]interface{}{"userId": user.ID})
	}

	s.ensureVirtualAccount(c, user)

	cmd := s.classifier.Classify(msg.Text)

	if s.auditor != nil {
		if err := s.auditor.RecordClassification(ctx, msg, cmd); err != nil {
			s.logger.Warn("classification audit failed", map[string]interface{}{"error": err})
		}
	}

	s.dispatcher.Dispatch(ctx, user, cmd)
}

// ensureVirtualAccount lazily opens a funding account for users who don't
// have one yet. Failure is tolerated: the user can still transact from an
// existing balance.
func (s *Server) ensureVirtualAccount(c *gin.Context, user *models.User) {
	if user.VirtualAccountNumber != "" || s.gateway == nil {
		return
	}
	ctx := c.Request.Context()

	account, err := s.gateway.CreateVirtualAccount(ctx, user)
	if err != nil {
		s.logger.Warn("virtual account creation failed", map[string]interface{}{
			"userId": user.ID,
			"error":  err,
		})
		return
	}

	if err := s.store.SetVirtualAccount(ctx, user.ID, account.AccountNumber, account.AccountName, account.AccountReference); err != nil {
		s.logger.Error("virtual account not persisted", map[string]interface{}{
			"userId": user.ID,
			"error":  err,
		})
		return
	}
	user.VirtualAccountNumber = account.AccountNumber
	user.VirtualAccountName = account.AccountName
	user.AccountReference = account.AccountReference
}
