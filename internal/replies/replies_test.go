// internal/replies/replies_test.go
package replies

import (
	"testing"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"
	"forbill-bot/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	reg := registry.New("../../configs/reply-templates.json")
	limits := config.LimitsConfig{
		Airtime:        config.AmountBounds{Min: 50, Max: 50000},
		Electricity:    config.AmountBounds{Min: 500, Max: 100000},
		Networks:       []string{"mtn", "glo", "airtel", "9mobile"},
		CableProviders: []string{"dstv", "gotv", "startimes"},
	}
	return NewBuilder(reg, limits, logger.NewTestLogger(t))
}

func TestGreeting(t *testing.T) {
	b := testBuilder(t)

	reply := b.Greeting(&models.User{Name: "Ada"})
	assert.Contains(t, reply.Text, "Ada")
	require.Len(t, reply.Buttons, 3)
	assert.Equal(t, "buy_airtime", reply.Buttons[0].ID)
}

func TestGreeting_NoName(t *testing.T) {
	b := testBuilder(t)

	reply := b.Greeting(&models.User{})
	assert.Contains(t, reply.Text, "there")
}

func TestBalance(t *testing.T) {
	b := testBuilder(t)

	reply := b.Balance(&models.User{
		WalletBalance:        12500,
		VirtualAccountNumber: "9012345678",
		VirtualAccountName:   "ForBill - Ada",
	})
	assert.Contains(t, reply.Text, "₦12,500")
	assert.Contains(t, reply.Text, "9012345678")
}

func TestAirtimeSuccess(t *testing.T) {
	b := testBuilder(t)

	reply := b.AirtimeSuccess(&models.Transaction{
		Amount:         1000,
		RecipientPhone: "2348012345678",
		Network:        "mtn",
		Reference:      "FB-AIRTIME-1A2B3C4D",
		NewBalance:     4000,
	})
	assert.Contains(t, reply.Text, "₦1,000")
	assert.Contains(t, reply.Text, "MTN")
	assert.Contains(t, reply.Text, "FB-AIRTIME-1A2B3C4D")
	assert.NotContains(t, reply.Text, "{{")
}

func TestInsufficientBalance(t *testing.T) {
	b := testBuilder(t)

	reply := b.InsufficientBalance(&models.User{
		WalletBalance:        200,
		VirtualAccountNumber: "9012345678",
		VirtualAccountName:   "ForBill - Ada",
	}, 1000)
	assert.Contains(t, reply.Text, "₦200")
	assert.Contains(t, reply.Text, "₦1,000")
	assert.Contains(t, reply.Text, "9012345678")
}

func TestHistory(t *testing.T) {
	b := testBuilder(t)

	created := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	reply := b.History([]*models.Transaction{
		{
			Type:      models.TxnTypeAirtime,
			Amount:    500,
			Reference: "FB-AIRTIME-1A2B3C4D",
			Status:    models.TxnStatusCompleted,
			CreatedAt: created,
		},
		{
			Type:      models.TxnTypeWalletFunding,
			Amount:    5000,
			Reference: "PAY-REF-1",
			Status:    models.TxnStatusCompleted,
			CreatedAt: created,
		},
	})
	assert.Contains(t, reply.Text, "1. Airtime ₦500")
	assert.Contains(t, reply.Text, "2. Funding ₦5,000")
	assert.Contains(t, reply.Text, "20 Aug 14:30")
}

func TestHistory_Empty(t *testing.T) {
	b := testBuilder(t)
	reply := b.History(nil)
	assert.Contains(t, reply.Text, "no transactions")
}

func TestCorrection_AmountBoundsPerCommand(t *testing.T) {
	b := testBuilder(t)

	low := b.Correction(intent.CommandAirtimePurchase, &intent.ValidationError{Code: errors.ErrCodeAmountTooLow})
	assert.Contains(t, low.Text, "₦50")

	lowElec := b.Correction(intent.CommandElectricityPayment, &intent.ValidationError{Code: errors.ErrCodeAmountTooLow})
	assert.Contains(t, lowElec.Text, "₦500")

	high := b.Correction(intent.CommandAirtimePurchase, &intent.ValidationError{Code: errors.ErrCodeAmountTooHigh})
	assert.Contains(t, high.Text, "₦50,000")
}

func TestCorrection_InvalidPhone(t *testing.T) {
	b := testBuilder(t)

	reply := b.Correction(intent.CommandAirtimePurchase, &intent.ValidationError{Code: errors.ErrCodeInvalidPhoneFormat})
	assert.Contains(t, reply.Text, "08012345678")
}

func TestCorrection_MissingParameterIncludesExample(t *testing.T) {
	b := testBuilder(t)

	reply := b.Correction(intent.CommandDataPurchase, &intent.ValidationError{
		Code:    errors.ErrCodeMissingParameter,
		Message: "network",
	})
	assert.Contains(t, reply.Text, "network")
	assert.Contains(t, reply.Text, "buy 2gb mtn")
}

func TestCorrection_UnknownProviderListsCatalog(t *testing.T) {
	b := testBuilder(t)

	reply := b.Correction(intent.CommandCableSubscription, &intent.ValidationError{Code: errors.ErrCodeUnknownProvider})
	assert.Contains(t, reply.Text, "mtn")
	assert.Contains(t, reply.Text, "dstv")
}

func TestRender_FallbackWhenRegistryMissing(t *testing.T) {
	reg := registry.New("/nonexistent/path.json")
	b := NewBuilder(reg, config.LimitsConfig{}, logger.NewTestLogger(t))

	reply := b.Help()
	assert.NotEmpty(t, reply.Text)
	assert.Contains(t, reply.Text, "airtime")
}

func TestFormatNaira(t *testing.T) {
	assert.Equal(t, "₦50", formatNaira(50))
	assert.Equal(t, "₦1,000", formatNaira(1000))
	assert.Equal(t, "₦1,234,567", formatNaira(1234567))
}
