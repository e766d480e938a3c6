// internal/webhook/server_test.go
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"forbill-bot/internal/bot"
	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"
	"forbill-bot/internal/payment"
	"forbill-bot/internal/replies"
	"forbill-bot/internal/store"
	"forbill-bot/internal/vtu"
	"forbill-bot/internal/whatsapp"
	"forbill-bot/pkg/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVerifyToken = "verify-me"
	testAppSecret   = "app-secret"
	testHookSecret  = "hook-secret"
)

type fakeSender struct {
	texts []string
	to    []string
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	f.to = append(f.to, to)
	f.texts = append(f.texts, body)
	return nil
}

func (f *fakeSender) SendButtons(_ context.Context, to, body string, _ []whatsapp.Button) error {
	f.to = append(f.to, to)
	f.texts = append(f.texts, body)
	return nil
}

func (f *fakeSender) MarkRead(_ context.Context, _ string) error { return nil }

type fakeGateway struct {
	account *payment.VirtualAccount
	status  *payment.FundingStatus
	err     error
}

func (f *fakeGateway) CreateVirtualAccount(_ context.Context, _ *models.User) (*payment.VirtualAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeGateway) GetTransactionStatus(_ context.Context, _ string) (*payment.FundingStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

func (f *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(testHookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type fakeVender struct{}

func (f *fakeVender) BuyAirtime(_ context.Context, _ vtu.AirtimeRequest) (*vtu.VendResult, error) {
	return &vtu.VendResult{ProviderReference: "TPM-1"}, nil
}
func (f *fakeVender) BuyData(_ context.Context, _ vtu.DataRequest) (*vtu.VendResult, error) {
	return &vtu.VendResult{ProviderReference: "TPM-2"}, nil
}
func (f *fakeVender) PayElectricity(_ context.Context, _ vtu.ElectricityRequest) (*vtu.VendResult, error) {
	return &vtu.VendResult{ProviderReference: "TPM-3"}, nil
}
func (f *fakeVender) PayCable(_ context.Context, _ vtu.CableRequest) (*vtu.VendResult, error) {
	return &vtu.VendResult{ProviderReference: "TPM-4"}, nil
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.App.Name = "forbill-bot"
	cfg.App.Version = "1.0.0"
	cfg.WhatsApp.VerifyToken = testVerifyToken
	cfg.WhatsApp.AppSecret = testAppSecret
	cfg.Referral.BonusNaira = 100
	cfg.Limits = config.LimitsConfig{
		Airtime:           config.AmountBounds{Min: 50, Max: 50000},
		Electricity:       config.AmountBounds{Min: 500, Max: 100000},
		DataGranularityMB: 100,
		Networks:          []string{"mtn", "glo", "airtel", "9mobile"},
		CableProviders:    []string{"dstv", "gotv", "startimes"},
	}
	return cfg
}

func newTestServer(t *testing.T, gateway payment.Gateway) (*Server, *fakeSender, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := testConfig()
	log := logger.NewTestLogger(t)
	st := store.NewStore(sqlDB, log)
	classifier, err := intent.NewClassifier(cfg.Limits, log)
	require.NoError(t, err)

	sender := &fakeSender{}
	builder := replies.NewBuilder(registry.New("../../configs/reply-templates.json"), cfg.Limits, log)
	dispatcher := bot.NewDispatcher(st, &fakeVender{}, sender, builder, nil, cfg.Referral, nil, log)

	server := NewServer(ServerConfig{
		Config:     cfg,
		Store:      st,
		Classifier: classifier,
		Dispatcher: dispatcher,
		Sender:     sender,
		Gateway:    gateway,
		Replies:    builder,
		Logger:     log,
	})
	return server, sender, mock
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func userRows(balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "phone_number", "name", "email", "wallet_balance",
		"virtual_account_number", "virtual_account_name", "account_reference",
		"default_network", "referral_code", "referred_by", "referral_bonus_claimed",
		"is_active", "is_blocked", "created_at", "updated_at", "last_activity",
	}).AddRow("user-1", "2348012345678", "Ada", "", balance,
		"9012345678", "ForBill - Ada", "FORBILL-user-1-5678",
		"", "FB1A2B3C", "", false, true, false, time.Now().UTC(), time.Now().UTC(), nil)
}

const inboundEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "2348012345678", "profile": {"name": "Ada"}}],
        "messages": [{
          "id": "wamid.1",
          "from": "2348012345678",
          "timestamp": "1724140800",
          "type": "text",
          "text": {"body": "hello"}
        }]
      }
    }]
  }]
}`

func TestVerifyWhatsApp_Handshake(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token="+testVerifyToken+"&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerifyWhatsApp_BadToken(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReceiveWhatsApp_RejectsBadSignature(t *testing.T) {
	server, sender, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewBufferString(inboundEnvelope))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, sender.texts)
}

func TestReceiveWhatsApp_IgnoresWrongObject(t *testing.T) {
	server, sender, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	body := []byte(`{"object": "instagram", "entry": []}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewBuffer(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+sign(testAppSecret, body))
	router.ServeHTTP(w, req)

	// Acknowledged so Meta does not retry, but nothing processed.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sender.texts)
}

func TestReceiveWhatsApp_GreetingRoundTrip(t *testing.T) {
	server, sender, mock := newTestServer(t, &fakeGateway{})
	router := server.Router()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348012345678").
		WillReturnRows(userRows(5000))
	mock.ExpectExec(`UPDATE users SET last_activity = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := []byte(inboundEnvelope)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewBuffer(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+sign(testAppSecret, body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "Ada")
	assert.Equal(t, "2348012345678", sender.to[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCallback_RejectsBadSignature(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	body := []byte(`{"event":"funding.success","reference":"PAY-1","account_reference":"FORBILL-user-1-5678","amount":5000}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Payment-Signature", "deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentCallback_IgnoresOtherEvents(t *testing.T) {
	server, sender, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	body := []byte(`{"event":"funding.pending","reference":"PAY-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Payment-Signature", sign(testHookSecret, body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sender.texts)
}

func TestPaymentCallback_DuplicateReference(t *testing.T) {
	server, sender, mock := newTestServer(t, &fakeGateway{
		status: &payment.FundingStatus{Status: "successful", Amount: 5000},
	})
	router := server.Router()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("PAY-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	body := []byte(`{"event":"funding.success","reference":"PAY-1","account_reference":"FORBILL-user-1-5678","amount":5000}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Payment-Signature", sign(testHookSecret, body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
	assert.Empty(t, sender.texts)
}

func TestPaymentCallback_SuccessCreditsAndConfirms(t *testing.T) {
	server, sender, mock := newTestServer(t, &fakeGateway{
		status: &payment.FundingStatus{Status: "successful", Amount: 5000},
	})
	router := server.Router()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("PAY-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE account_reference = \$1`).
		WithArgs("FORBILL-user-1-5678").
		WillReturnRows(userRows(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow(0))
	mock.ExpectExec(`UPDATE users SET wallet_balance = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`UPDATE transactions SET status = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Callback claims a different amount; the verified amount is credited.
	body := []byte(`{"event":"funding.success","reference":"PAY-1","account_reference":"FORBILL-user-1-5678","amount":999999}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Payment-Signature", sign(testHookSecret, body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "₦5,000")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCallback_UnverifiedNotCredited(t *testing.T) {
	server, sender, mock := newTestServer(t, &fakeGateway{
		status: &payment.FundingStatus{Status: "failed"},
	})
	router := server.Router()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("PAY-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	body := []byte(`{"event":"funding.success","reference":"PAY-1","account_reference":"FORBILL-user-1-5678","amount":5000}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBuffer(body))
	req.Header.Set("X-Payment-Signature", sign(testHookSecret, body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unverified")
	assert.Empty(t, sender.texts)
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeGateway{})
	router := server.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
