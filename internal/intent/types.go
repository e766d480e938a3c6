// internal/intent/types.go
package intent

import (
	"fmt"

	"forbill-bot/internal/common/errors"
)

// CommandType identifies the purpose of a user message.
type CommandType string

const (
	CommandGreeting           CommandType = "greeting"
	CommandHelp               CommandType = "help"
	CommandBalanceCheck       CommandType = "balance_check"
	CommandAirtimePurchase    CommandType = "airtime_purchase"
	CommandDataPurchase       CommandType = "data_purchase"
	CommandElectricityPayment CommandType = "electricity_payment"
	CommandCableSubscription  CommandType = "cable_subscription"
	CommandTransactionHistory CommandType = "transaction_history"
	CommandReferralInfo       CommandType = "referral_info"
	CommandUnknown            CommandType = "unknown"
)

func (c CommandType) String() string {
	return string(c)
}

// Confidence indicates how completely a grammar matched.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Parameter keys used in ParsedCommand.Parameters.
const (
	ParamAmount          = "amount"
	ParamPhone           = "phone"
	ParamNetwork         = "network"
	ParamProvider        = "provider"
	ParamDataSizeMB      = "data_size_mb"
	ParamDataSizeDisplay = "data_size_display"
	ParamError           = "error"
)

// ValidationError describes a parameter that was present but unusable, or a
// required parameter that was missing. It travels inside ParsedCommand so the
// caller can send a targeted correction message.
type ValidationError struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// ParsedCommand is the classifier's output. It is created once per message
// and must be treated as read-only by everything downstream.
type ParsedCommand struct {
	CommandType CommandType            `json:"commandType"`
	RawText     string                 `json:"rawText"`
	Confidence  Confidence             `json:"confidence"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Amount returns the normalized naira amount if one was extracted.
func (p *ParsedCommand) Amount() (int64, bool) {
	v, ok := p.Parameters[ParamAmount].(int64)
	return v, ok
}

// PhoneNumber returns the canonical 234-prefixed phone number if present.
func (p *ParsedCommand) PhoneNumber() (string, bool) {
	v, ok := p.Parameters[ParamPhone].(string)
	return v, ok
}

// Network returns the network provider if present.
func (p *ParsedCommand) Network() (string, bool) {
	v, ok := p.Parameters[ParamNetwork].(string)
	return v, ok
}

// CableProvider returns the cable TV provider if present.
func (p *ParsedCommand) CableProvider() (string, bool) {
	v, ok := p.Parameters[ParamProvider].(string)
	return v, ok
}

// DataSizeMB returns the data bundle size in MB-equivalent if present.
func (p *ParsedCommand) DataSizeMB() (int, bool) {
	v, ok := p.Parameters[ParamDataSizeMB].(int)
	return v, ok
}

// DataSizeDisplay returns the human-readable size ("2.0GB") if present.
func (p *ParsedCommand) DataSizeDisplay() (string, bool) {
	v, ok := p.Parameters[ParamDataSizeDisplay].(string)
	return v, ok
}

// ValidationError returns the validation failure attached to this command,
// if any. A nil result means every extracted parameter was usable.
func (p *ParsedCommand) ValidationError() *ValidationError {
	v, ok := p.Parameters[ParamError].(*ValidationError)
	if !ok {
		return nil
	}
	return v
}
