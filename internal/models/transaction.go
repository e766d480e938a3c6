// internal/models/transaction.go
package models

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxnTypeAirtime       TransactionType = "airtime"
	TxnTypeData          TransactionType = "data"
	TxnTypeElectricity   TransactionType = "electricity"
	TxnTypeCableTV       TransactionType = "cable_tv"
	TxnTypeWalletFunding TransactionType = "wallet_funding"
	TxnTypeReferralBonus TransactionType = "referral_bonus"
	TxnTypeRefund        TransactionType = "refund"
)

// TransactionStatus tracks a transaction through its lifecycle.
type TransactionStatus string

const (
	TxnStatusPending    TransactionStatus = "pending"
	TxnStatusProcessing TransactionStatus = "processing"
	TxnStatusCompleted  TransactionStatus = "completed"
	TxnStatusFailed     TransactionStatus = "failed"
	TxnStatusReversed   TransactionStatus = "reversed"
)

// Transaction records one financial operation against a user's wallet.
// Amounts are whole naira; PreviousBalance/NewBalance capture the wallet
// before and after the operation for auditability.
type Transaction struct {
	ID                string            `json:"id" db:"id"`
	UserID            string            `json:"userId" db:"user_id"`
	Reference         string            `json:"reference" db:"reference"`
	Type              TransactionType   `json:"type" db:"type"`
	Status            TransactionStatus `json:"status" db:"status"`
	Amount            int64             `json:"amount" db:"amount"`
	PreviousBalance   int64             `json:"previousBalance" db:"previous_balance"`
	NewBalance        int64             `json:"newBalance" db:"new_balance"`
	Network           string            `json:"network,omitempty" db:"network"`
	RecipientPhone    string            `json:"recipientPhone,omitempty" db:"recipient_phone"`
	PlanName          string            `json:"planName,omitempty" db:"plan_name"`
	ProviderReference string            `json:"providerReference,omitempty" db:"provider_reference"`
	Token             string            `json:"token,omitempty" db:"token"`
	Description       string            `json:"description,omitempty" db:"description"`
	CreatedAt         time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time         `json:"updatedAt" db:"updated_at"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty" db:"completed_at"`
}
