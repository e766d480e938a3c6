// internal/replies/replies.go
package replies

import (
	"fmt"
	"strings"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"
	"forbill-bot/pkg/registry"
)

// Template IDs in the reply registry.
const (
	TemplateGreeting            = "greeting"
	TemplateHelp                = "help"
	TemplateBalance             = "balance"
	TemplateAirtimeSuccess      = "airtime_success"
	TemplateDataSuccess         = "data_success"
	TemplateElectricitySuccess  = "electricity_success"
	TemplateCableSuccess        = "cable_success"
	TemplateInsufficientBalance = "insufficient_balance"
	TemplateWalletFunded        = "wallet_funded"
	TemplateReferral            = "referral"
	TemplateUnknown             = "unknown"
	TemplateGenericError        = "generic_error"

	TemplateAmountTooLow     = "amount_too_low"
	TemplateAmountTooHigh    = "amount_too_high"
	TemplateNotNumeric       = "not_numeric"
	TemplateInvalidPhone     = "invalid_phone"
	TemplateUnknownProvider  = "unknown_provider"
	TemplateMissingParameter = "missing_parameter"
)

// Builder renders outbound message text from the reply registry. Every
// render failure falls back to a plain hardcoded line so the bot never goes
// silent because of a registry problem.
type Builder struct {
	registry *registry.Registry
	limits   config.LimitsConfig
	logger   logger.Logger
}

func NewBuilder(reg *registry.Registry, limits config.LimitsConfig, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Builder{
		registry: reg,
		limits:   limits,
		logger:   log.WithFields(map[string]interface{}{"component": "replies"}),
	}
}

// Reply is a rendered outbound message. Buttons are optional quick replies.
type Reply struct {
	Text    string
	Buttons []registry.TemplateButton
}

func (b *Builder) render(id string, data map[string]interface{}, fallback string) Reply {
	text, buttons, err := b.registry.Render(id, data)
	if err != nil {
		b.logger.Error("reply render failed", map[string]interface{}{
			"templateId": id,
			"error":      err,
		})
		return Reply{Text: fallback}
	}
	return Reply{Text: text, Buttons: buttons}
}

func (b *Builder) Greeting(user *models.User) Reply {
	name := user.Name
	if name == "" {
		name = "there"
	}
	return b.render(TemplateGreeting, map[string]interface{}{
		"name": name,
	}, "Hello! Send 'help' to see what I can do.")
}

func (b *Builder) Help() Reply {
	return b.render(TemplateHelp, nil,
		"You can buy airtime, buy data, pay electricity, subscribe cable TV, check balance, or view history.")
}

func (b *Builder) Balance(user *models.User) Reply {
	return b.render(TemplateBalance, map[string]interface{}{
		"balance":        formatNaira(user.WalletBalance),
		"account_number": user.VirtualAccountNumber,
		"account_name":   user.VirtualAccountName,
	}, fmt.Sprintf("Your wallet balance is %s.", formatNaira(user.WalletBalance)))
}

func (b *Builder) AirtimeSuccess(txn *models.Transaction) Reply {
	return b.render(TemplateAirtimeSuccess, map[string]interface{}{
		"amount":    formatNaira(txn.Amount),
		"phone":     txn.RecipientPhone,
		"network":   strings.ToUpper(txn.Network),
		"reference": txn.Reference,
		"balance":   formatNaira(txn.NewBalance),
	}, fmt.Sprintf("Airtime purchase successful. Ref: %s", txn.Reference))
}

func (b *Builder) DataSuccess(txn *models.Transaction) Reply {
	return b.render(TemplateDataSuccess, map[string]interface{}{
		"plan":      txn.PlanName,
		"phone":     txn.RecipientPhone,
		"network":   strings.ToUpper(txn.Network),
		"reference": txn.Reference,
		"balance":   formatNaira(txn.NewBalance),
	}, fmt.Sprintf("Data purchase successful. Ref: %s", txn.Reference))
}

func (b *Builder) ElectricitySuccess(txn *models.Transaction) Reply {
	return b.render(TemplateElectricitySuccess, map[string]interface{}{
		"amount":    formatNaira(txn.Amount),
		"token":     txn.Token,
		"reference": txn.Reference,
		"balance":   formatNaira(txn.NewBalance),
	}, fmt.Sprintf("Electricity payment successful. Token: %s", txn.Token))
}

func (b *Builder) CableSuccess(txn *models.Transaction) Reply {
	return b.render(TemplateCableSuccess, map[string]interface{}{
		"provider":  strings.ToUpper(txn.Network),
		"amount":    formatNaira(txn.Amount),
		"reference": txn.Reference,
		"balance":   formatNaira(txn.NewBalance),
	}, fmt.Sprintf("Cable subscription successful. Ref: %s", txn.Reference))
}

func (b *Builder) InsufficientBalance(user *models.User, required int64) Reply {
	return b.render(TemplateInsufficientBalance, map[string]interface{}{
		"balance":        formatNaira(user.WalletBalance),
		"required":       formatNaira(required),
		"account_number": user.VirtualAccountNumber,
		"account_name":   user.VirtualAccountName,
		"bank_name":      "Payrant Bank",
	}, fmt.Sprintf("Insufficient balance. You have %s but need %s. Fund your wallet to continue.",
		formatNaira(user.WalletBalance), formatNaira(required)))
}

func (b *Builder) WalletFunded(txn *models.Transaction) Reply {
	return b.render(TemplateWalletFunded, map[string]interface{}{
		"amount":  formatNaira(txn.Amount),
		"balance": formatNaira(txn.NewBalance),
	}, fmt.Sprintf("Wallet funded with %s. New balance: %s.",
		formatNaira(txn.Amount), formatNaira(txn.NewBalance)))
}

func (b *Builder) Referral(user *models.User, referralCount int, bonusNaira int64) Reply {
	return b.render(TemplateReferral, map[string]interface{}{
		"code":  user.ReferralCode,
		"count": referralCount,
		"bonus": formatNaira(bonusNaira),
	}, fmt.Sprintf("Your referral code is %s.", user.ReferralCode))
}

// History is rendered in code: the line count varies with the transaction
// list, which a fixed template cannot express.
func (b *Builder) History(txns []*models.Transaction) Reply {
	if len(txns) == 0 {
		return Reply{Text: "You have no transactions yet."}
	}

	var sb strings.Builder
	sb.WriteString("Your recent transactions:\n")
	for i, txn := range txns {
		sb.WriteString(fmt.Sprintf("\n%d. %s %s - %s\n   Ref: %s (%s)",
			i+1,
			describeType(txn.Type),
			formatNaira(txn.Amount),
			txn.CreatedAt.Format("02 Jan 15:04"),
			txn.Reference,
			txn.Status,
		))
	}
	return Reply{Text: sb.String()}
}

func (b *Builder) Unknown() Reply {
	return b.render(TemplateUnknown, nil,
		"Sorry, I didn't understand that. Send 'help' to see what I can do.")
}

func (b *Builder) GenericError() Reply {
	return b.render(TemplateGenericError, nil,
		"Something went wrong on our side. Please try again in a moment.")
}

// Correction maps a validation error on a parsed command to a targeted
// message telling the user exactly what to fix. The command type picks the
// bounds quoted back for amount errors.
func (b *Builder) Correction(cmdType intent.CommandType, verr *intent.ValidationError) Reply {
	bounds := b.boundsFor(cmdType)

	switch verr.Code {
	case errors.ErrCodeAmountTooLow:
		return b.render(TemplateAmountTooLow, map[string]interface{}{
			"min": formatNaira(bounds.Min),
			"max": formatNaira(bounds.Max),
		}, fmt.Sprintf("That amount is too low. The minimum is %s.", formatNaira(bounds.Min)))

	case errors.ErrCodeAmountTooHigh:
		return b.render(TemplateAmountTooHigh, map[string]interface{}{
			"min": formatNaira(bounds.Min),
			"max": formatNaira(bounds.Max),
		}, fmt.Sprintf("That amount is too high. The maximum is %s.", formatNaira(bounds.Max)))

	case errors.ErrCodeNotNumeric:
		return b.render(TemplateNotNumeric, nil,
			"I couldn't read that amount. Please send a whole number, e.g. 'buy 500 airtime'.")

	case errors.ErrCodeInvalidPhoneFormat:
		return b.render(TemplateInvalidPhone, nil,
			"That phone number doesn't look right. Use a format like 08012345678.")

	case errors.ErrCodeUnknownProvider:
		return b.render(TemplateUnknownProvider, map[string]interface{}{
			"networks":  strings.Join(b.limits.Networks, ", "),
			"providers": strings.Join(b.limits.CableProviders, ", "),
		}, "I don't recognise that provider.")

	case errors.ErrCodeMissingParameter:
		return b.render(TemplateMissingParameter, map[string]interface{}{
			"missing": verr.Message,
			"example": exampleFor(cmdType),
		}, fmt.Sprintf("I need a bit more detail. Try: %s", exampleFor(cmdType)))

	default:
		return b.Unknown()
	}
}

func (b *Builder) boundsFor(cmdType intent.CommandType) config.AmountBounds {
	if cmdType == intent.CommandElectricityPayment {
		return b.limits.Electricity
	}
	return b.limits.Airtime
}

func exampleFor(cmdType intent.CommandType) string {
	switch cmdType {
	case intent.CommandAirtimePurchase:
		return "buy 500 airtime for 08012345678"
	case intent.CommandDataPurchase:
		return "buy 2gb mtn for 08012345678"
	case intent.CommandElectricityPayment:
		return "buy 2000 electricity"
	case intent.CommandCableSubscription:
		return "renew dstv"
	default:
		return "help"
	}
}

func describeType(t models.TransactionType) string {
	switch t {
	case models.TxnTypeAirtime:
		return "Airtime"
	case models.TxnTypeData:
		return "Data"
	case models.TxnTypeElectricity:
		return "Electricity"
	case models.TxnTypeCableTV:
		return "Cable TV"
	case models.TxnTypeWalletFunding:
		return "Funding"
	case models.TxnTypeReferralBonus:
		return "Referral bonus"
	case models.TxnTypeRefund:
		return "Refund"
	default:
		return string(t)
	}
}

func formatNaira(amount int64) string {
	return fmt.Sprintf("₦%s", groupThousands(amount))
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
