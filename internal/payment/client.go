// internal/payment/client.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	httpclient "forbill-bot/internal/common/http"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/models"
)

// Gateway is the payment-provider surface the webhook and bot depend on.
type Gateway interface {
	CreateVirtualAccount(ctx context.Context, user *models.User) (*VirtualAccount, error)
	GetTransactionStatus(ctx context.Context, reference string) (*FundingStatus, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

// VirtualAccount is the dedicated bank account a user funds their wallet
// through.
type VirtualAccount struct {
	AccountNumber    string `json:"account_number"`
	AccountName      string `json:"account_name"`
	BankName         string `json:"bank_name"`
	AccountReference string `json:"account_reference"`
}

// FundingStatus is the gateway's view of one funding transaction.
type FundingStatus struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// FundingEvent is the callback body the gateway posts when a virtual
// account receives money.
type FundingEvent struct {
	Event            string `json:"event"`
	Reference        string `json:"reference"`
	AccountReference string `json:"account_reference"`
	Amount           int64  `json:"amount"`
}

// Client talks to the virtual-account payment gateway.
type Client struct {
	cfg    config.PaymentConfig
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg config.PaymentConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   httpclient.NewClient(timeout),
		logger: log.WithFields(map[string]interface{}{"component": "payment"}),
	}
}

// CreateVirtualAccount opens a dedicated funding account for the user.
func (c *Client) CreateVirtualAccount(ctx context.Context, user *models.User) (*VirtualAccount, error) {
	accountName := user.Name
	if accountName == "" {
		accountName = "ForBill-" + lastDigits(user.PhoneNumber, 4)
	}

	payload := map[string]interface{}{
		"account_reference": fmt.Sprintf("FORBILL-%s-%s", user.ID, lastDigits(user.PhoneNumber, 4)),
		"account_name":      accountName,
		"customer_name":     accountName,
		"customer_phone":    user.PhoneNumber,
		"customer_email":    user.Email,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+"/virtual-accounts", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}
	c.setHeaders(req)

	res, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, errors.NewPaymentFailedError(fmt.Errorf("status %d", res.StatusCode))
	}

	var account VirtualAccount
	if err := json.NewDecoder(res.Body).Decode(&account); err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}

	c.logger.Info("virtual account created", map[string]interface{}{
		"userId":        user.ID,
		"accountNumber": account.AccountNumber,
	})

	return &account, nil
}

// GetTransactionStatus re-verifies a funding reference with the gateway
// before crediting the wallet. Callback payloads alone are not trusted.
func (c *Client) GetTransactionStatus(ctx context.Context, reference string) (*FundingStatus, error) {
	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/transactions/"+reference, nil)
	if err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}
	c.setHeaders(req)

	res, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewPaymentFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, errors.NewPaymentVerifyFailedError(fmt.Sprintf("status %d for reference %s", res.StatusCode, reference))
	}

	var status FundingStatus
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return nil, errors.NewPaymentVerifyFailedError(err.Error())
	}

	return &status, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 signature over
// the raw callback body. An empty webhook secret disables verification.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
