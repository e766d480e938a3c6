// internal/bot/handlers.go
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"
	"forbill-bot/internal/replies"
	"forbill-bot/internal/store"
	"forbill-bot/internal/vtu"
)

const historyLimit = 5

// meterRunPattern picks up a meter or smartcard number: a digit run of 10-13
// characters that is not the sender's own phone.
var meterRunPattern = regexp.MustCompile(`\b\d{10,13}\b`)

func (d *Dispatcher) handleGreeting(_ context.Context, user *models.User, _ *intent.ParsedCommand) replies.Reply {
	return d.replies.Greeting(user)
}

func (d *Dispatcher) handleHelp(_ context.Context, _ *models.User, _ *intent.ParsedCommand) replies.Reply {
	return d.replies.Help()
}

func (d *Dispatcher) handleUnknown(_ context.Context, _ *models.User, _ *intent.ParsedCommand) replies.Reply {
	return d.replies.Unknown()
}

func (d *Dispatcher) handleBalance(ctx context.Context, user *models.User, _ *intent.ParsedCommand) replies.Reply {
	// Re-read so the quoted balance reflects any funding that landed since
	// the user row was loaded.
	fresh, err := d.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return d.failCounted(intent.CommandBalanceCheck, err)
	}
	return d.replies.Balance(fresh)
}

func (d *Dispatcher) handleHistory(ctx context.Context, user *models.User, _ *intent.ParsedCommand) replies.Reply {
	txns, err := d.store.ListRecentTransactions(ctx, user.ID, historyLimit)
	if err != nil {
		return d.failCounted(intent.CommandTransactionHistory, err)
	}
	return d.replies.History(txns)
}

func (d *Dispatcher) handleReferral(ctx context.Context, user *models.User, _ *intent.ParsedCommand) replies.Reply {
	count, err := d.store.CountReferrals(ctx, user.ReferralCode)
	if err != nil {
		return d.failCounted(intent.CommandReferralInfo, err)
	}
	return d.replies.Referral(user, count, d.referral.BonusNaira)
}

func (d *Dispatcher) handleAirtime(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) replies.Reply {
	amount, ok := cmd.Amount()
	if !ok {
		return d.replies.Correction(cmd.CommandType, &intent.ValidationError{
			Code:    errors.ErrCodeMissingParameter,
			Message: "amount",
		})
	}

	phone := recipientPhone(user, cmd)
	network := user.DefaultNetwork
	if network == "" {
		network = "mtn"
	}

	reference := store.GenerateReference(models.TxnTypeAirtime)
	txn, err := d.store.DebitWallet(ctx, store.WalletOp{
		UserID:         user.ID,
		Amount:         amount,
		Type:           models.TxnTypeAirtime,
		Reference:      reference,
		Description:    fmt.Sprintf("Airtime %d for %s", amount, phone),
		Network:        network,
		RecipientPhone: phone,
	})
	if err != nil {
		if isInsufficientBalance(err) {
			return d.replies.InsufficientBalance(user, amount)
		}
		return d.failCounted(cmd.CommandType, err)
	}

	result, err := d.vender.BuyAirtime(ctx, vtu.AirtimeRequest{
		Phone:     phone,
		Amount:    amount,
		Network:   network,
		Reference: reference,
	})
	if err != nil {
		return d.refundAndApologize(ctx, cmd.CommandType, txn, err)
	}

	return d.completePurchase(ctx, txn, result, user, func() replies.Reply {
		return d.replies.AirtimeSuccess(txn)
	})
}

func (d *Dispatcher) handleData(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) replies.Reply {
	network, ok := cmd.Network()
	if !ok {
		return d.replies.Correction(cmd.CommandType, &intent.ValidationError{
			Code:    errors.ErrCodeMissingParameter,
			Message: "network",
		})
	}
	sizeMB, ok := cmd.DataSizeMB()
	if !ok {
		return d.replies.Correction(cmd.CommandType, &intent.ValidationError{
			Code:    errors.ErrCodeMissingParameter,
			Message: "data size",
		})
	}

	phone := recipientPhone(user, cmd)
	display, _ := cmd.DataSizeDisplay()
	if display == "" {
		display = intent.FormatDataSize(sizeMB)
	}
	planName := fmt.Sprintf("%s %s", strings.ToUpper(network), display)
	price := dataPlanPrice(sizeMB)

	reference := store.GenerateReference(models.TxnTypeData)
	txn, err := d.store.DebitWallet(ctx, store.WalletOp{
		UserID:         user.ID,
		Amount:         price,
		Type:           models.TxnTypeData,
		Reference:      reference,
		Description:    fmt.Sprintf("Data %s for %s", planName, phone),
		Network:        network,
		RecipientPhone: phone,
		PlanName:       planName,
	})
	if err != nil {
		if isInsufficientBalance(err) {
			return d.replies.InsufficientBalance(user, price)
		}
		return d.failCounted(cmd.CommandType, err)
	}

	result, err := d.vender.BuyData(ctx, vtu.DataRequest{
		Phone:     phone,
		Network:   network,
		SizeMB:    sizeMB,
		PlanName:  planName,
		Reference: reference,
	})
	if err != nil {
		return d.refundAndApologize(ctx, cmd.CommandType, txn, err)
	}

	return d.completePurchase(ctx, txn, result, user, func() replies.Reply {
		return d.replies.DataSuccess(txn)
	})
}

func (d *Dispatcher) handleElectricity(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) replies.Reply {
	amount, ok := cmd.Amount()
	if !ok {
		return d.replies.Correction(cmd.CommandType, &intent.ValidationError{
			Code:    errors.ErrCodeMissingParameter,
			Message: "amount",
		})
	}

	meter := deviceNumber(cmd.RawText, user.PhoneNumber)
	if meter == "" {
		return replies.Reply{Text: "Please include your meter number, e.g. 'buy 2000 electricity 04123456789'."}
	}

	reference := store.GenerateReference(models.TxnTypeElectricity)
	txn, err := d.store.DebitWallet(ctx, store.WalletOp{
		UserID:      user.ID,
		Amount:      amount,
		Type:        models.TxnTypeElectricity,
		Reference:   reference,
		Description: fmt.Sprintf("Electricity %d for meter %s", amount, meter),
	})
	if err != nil {
		if isInsufficientBalance(err) {
			return d.replies.InsufficientBalance(user, amount)
		}
		return d.failCounted(cmd.CommandType, err)
	}

	result, err := d.vender.PayElectricity(ctx, vtu.ElectricityRequest{
		MeterNumber: meter,
		Amount:      amount,
		Reference:   reference,
	})
	if err != nil {
		return d.refundAndApologize(ctx, cmd.CommandType, txn, err)
	}

	txn.Token = result.Token
	return d.completePurchase(ctx, txn, result, user, func() replies.Reply {
		return d.replies.ElectricitySuccess(txn)
	})
}

func (d *Dispatcher) handleCable(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) replies.Reply {
	provider, ok := cmd.CableProvider()
	if !ok {
		return d.replies.Correction(cmd.CommandType, &intent.ValidationError{
			Code:    errors.ErrCodeMissingParameter,
			Message: "provider",
		})
	}

	smartcard := deviceNumber(cmd.RawText, user.PhoneNumber)
	if smartcard == "" {
		return replies.Reply{Text: fmt.Sprintf("Please include your smartcard number, e.g. 'renew %s 7012345678'.", provider)}
	}

	pkg := basicCablePackage(provider)

	reference := store.GenerateReference(models.TxnTypeCableTV)
	txn, err := d.store.DebitWallet(ctx, store.WalletOp{
		UserID:      user.ID,
		Amount:      pkg.price,
		Type:        models.TxnTypeCableTV,
		Reference:   reference,
		Description: fmt.Sprintf("Cable %s (%s) for %s", provider, pkg.name, smartcard),
		Network:     provider,
		PlanName:    pkg.name,
	})
	if err != nil {
		if isInsufficientBalance(err) {
			return d.replies.InsufficientBalance(user, pkg.price)
		}
		return d.failCounted(cmd.CommandType, err)
	}

	result, err := d.vender.PayCable(ctx, vtu.CableRequest{
		Provider:        provider,
		SmartcardNumber: smartcard,
		PackageCode:     pkg.code,
		Reference:       reference,
	})
	if err != nil {
		return d.refundAndApologize(ctx, cmd.CommandType, txn, err)
	}

	return d.completePurchase(ctx, txn, result, user, func() replies.Reply {
		return d.replies.CableSuccess(txn)
	})
}

// completePurchase records the provider acknowledgement and sends a receipt
// email. Email failure never fails the purchase.
func (d *Dispatcher) completePurchase(ctx context.Context, txn *models.Transaction, result *vtu.VendResult, user *models.User, success func() replies.Reply) replies.Reply {
	if err := d.store.MarkTransactionCompleted(ctx, txn.Reference, result.ProviderReference, result.Token); err != nil {
		d.logger.Error("transaction completion not recorded", map[string]interface{}{
			"reference": txn.Reference,
			"error":     err,
		})
	}
	txn.Status = models.TxnStatusCompleted
	txn.ProviderReference = result.ProviderReference

	if d.notifier != nil {
		if err := d.notifier.SendReceipt(ctx, user, txn); err != nil {
			d.logger.Warn("receipt not delivered", map[string]interface{}{
				"reference": txn.Reference,
			})
		}
	}

	return success()
}

// refundAndApologize reverses a debit whose downstream vend failed, then
// tells the user nothing was charged.
func (d *Dispatcher) refundAndApologize(ctx context.Context, cmdType intent.CommandType, txn *models.Transaction, vendErr error) replies.Reply {
	d.logger.Error("vend failed, refunding", map[string]interface{}{
		"reference": txn.Reference,
		"error":     vendErr,
	})

	if _, err := d.store.CreditWallet(ctx, store.WalletOp{
		UserID:      txn.UserID,
		Amount:      txn.Amount,
		Type:        models.TxnTypeRefund,
		Description: fmt.Sprintf("Refund for %s", txn.Reference),
	}); err != nil {
		// The debit stands with no refund: this needs a human now.
		d.logger.Error("refund failed", map[string]interface{}{
			"reference": txn.Reference,
			"error":     err,
		})
		if d.notifier != nil {
			d.notifier.AlertVendFailure(ctx, txn, fmt.Errorf("refund also failed: %v (vend: %v)", err, vendErr))
		}
	} else {
		if err := d.store.MarkTransactionReversed(ctx, txn.Reference); err != nil {
			d.logger.Error("reversal not recorded", map[string]interface{}{
				"reference": txn.Reference,
				"error":     err,
			})
		}
		if d.notifier != nil {
			d.notifier.AlertVendFailure(ctx, txn, vendErr)
		}
	}

	return d.failCounted(cmdType, vendErr)
}

func recipientPhone(user *models.User, cmd *intent.ParsedCommand) string {
	if phone, ok := cmd.PhoneNumber(); ok {
		return phone
	}
	return user.PhoneNumber
}

// deviceNumber finds a meter/smartcard digit run in the raw message,
// ignoring the sender's own number.
func deviceNumber(rawText, senderPhone string) string {
	for _, run := range meterRunPattern.FindAllString(rawText, -1) {
		if strings.HasSuffix(senderPhone, run) || strings.HasSuffix(run, strings.TrimPrefix(senderPhone, "234")) {
			continue
		}
		return run
	}
	return ""
}

// dataPlanPrice maps a bundle size to its naira price. Sizes outside the
// catalog are pro-rated per GB.
func dataPlanPrice(sizeMB int) int64 {
	prices := map[int]int64{
		100:   100,
		500:   200,
		1024:  300,
		2048:  600,
		3072:  900,
		5120:  1500,
		10240: 3000,
	}
	if price, ok := prices[sizeMB]; ok {
		return price
	}
	price := int64(sizeMB) * 300 / 1024
	if price < 100 {
		price = 100
	}
	return price
}

type cablePackage struct {
	code  string
	name  string
	price int64
}

func basicCablePackage(provider string) cablePackage {
	switch provider {
	case "dstv":
		return cablePackage{code: "dstv-padi", name: "DStv Padi", price: 3600}
	case "gotv":
		return cablePackage{code: "gotv-smallie", name: "GOtv Smallie", price: 1575}
	case "startimes":
		return cablePackage{code: "startimes-nova", name: "StarTimes Nova", price: 1900}
	default:
		return cablePackage{code: provider + "-basic", name: strings.ToUpper(provider) + " Basic", price: 2000}
	}
}

func isInsufficientBalance(err error) bool {
	serr, ok := err.(*errors.StandardError)
	return ok && serr.Code == errors.ErrCodeInsufficientBalance
}
