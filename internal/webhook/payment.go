// internal/webhook/payment.go
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"forbill-bot/internal/models"
	"forbill-bot/internal/payment"
	"forbill-bot/internal/store"

	"github.com/gin-gonic/gin"
)

// PaymentCallback handles funding notifications from the payment gateway.
// The callback is never trusted on its own: the transaction is re-verified
// against the gateway before any wallet credit.
func (s *Server) PaymentCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Payment-Signature")
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		s.logger.Warn("payment callback signature rejected", nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event payment.FundingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if event.Event != "funding.success" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()

	exists, err := s.store.ReferenceExists(ctx, event.Reference)
	if err != nil {
		s.logger.Error("funding dedupe check failed", map[string]interface{}{
			"reference": event.Reference,
			"error":     err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary failure"})
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	status, err := s.gateway.GetTransactionStatus(ctx, event.Reference)
	if err != nil || status.Status != "successful" {
		s.logger.Warn("funding verification failed", map[string]interface{}{
			"reference": event.Reference,
			"error":     err,
		})
		c.JSON(http.StatusOK, gin.H{"status": "unverified"})
		return
	}

	user, err := s.store.GetUserByAccountReference(ctx, event.AccountReference)
	if err != nil {
		s.logger.Error("funding for unknown account", map[string]interface{}{
			"accountReference": event.AccountReference,
		})
		c.JSON(http.StatusOK, gin.H{"status": "orphaned"})
		return
	}

	// The verified amount wins over whatever the callback claimed.
	txn, err := s.store.CreditWallet(ctx, store.WalletOp{
		UserID:      user.ID,
		Amount:      status.Amount,
		Type:        models.TxnTypeWalletFunding,
		Reference:   event.Reference,
		Description: fmt.Sprintf("Wallet funding via %s", event.AccountReference),
	})
	if err != nil {
		s.logger.Error("funding credit failed", map[string]interface{}{
			"reference": event.Reference,
			"error":     err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credit failed"})
		return
	}
	if err := s.store.MarkTransactionCompleted(ctx, txn.Reference, event.Reference, ""); err != nil {
		s.logger.Warn("funding completion not recorded", map[string]interface{}{
			"reference": txn.Reference,
		})
	}

	s.payReferralBonus(ctx, user)

	if s.replies != nil {
		reply := s.replies.WalletFunded(txn)
		if err := s.sender.SendText(ctx, user.PhoneNumber, reply.Text); err != nil {
			s.logger.Warn("funding confirmation not delivered", map[string]interface{}{
				"phone": user.PhoneNumber,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// payReferralBonus credits the referrer once, on the referred user's first
// successful funding.
func (s *Server) payReferralBonus(ctx context.Context, user *models.User) {
	if user.ReferredBy == "" || user.ReferralBonusClaimed || s.cfg.Referral.BonusNaira <= 0 {
		return
	}

	referrer, err := s.store.GetUserByReferralCode(ctx, user.ReferredBy)
	if err != nil {
		s.logger.Warn("referrer not found", map[string]interface{}{
			"code": user.ReferredBy,
		})
		return
	}

	if _, err := s.store.CreditWallet(ctx, store.WalletOp{
		UserID:      referrer.ID,
		Amount:      s.cfg.Referral.BonusNaira,
		Type:        models.TxnTypeReferralBonus,
		Description: fmt.Sprintf("Referral bonus for %s", user.PhoneNumber),
	}); err != nil {
		s.logger.Error("referral bonus credit failed", map[string]interface{}{
			"referrerId": referrer.ID,
			"error":      err,
		})
		return
	}

	if err := s.store.MarkReferralBonusClaimed(ctx, user.ID); err != nil {
		s.logger.Error("referral bonus claim not recorded", map[string]interface{}{
			"userId": user.ID,
		})
		return
	}

	s.logger.Info("referral bonus paid", map[string]interface{}{
		"referrerId": referrer.ID,
		"amount":     s.cfg.Referral.BonusNaira,
	})
}
