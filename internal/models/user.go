// internal/models/user.go
package models

import "time"

// User is a ForBill customer, keyed by their WhatsApp phone number.
// WalletBalance is whole naira.
type User struct {
	ID                   string     `json:"id" db:"id"`
	PhoneNumber          string     `json:"phoneNumber" db:"phone_number"`
	Name                 string     `json:"name,omitempty" db:"name"`
	Email                string     `json:"email,omitempty" db:"email"`
	WalletBalance        int64      `json:"walletBalance" db:"wallet_balance"`
	VirtualAccountNumber string     `json:"virtualAccountNumber,omitempty" db:"virtual_account_number"`
	VirtualAccountName   string     `json:"virtualAccountName,omitempty" db:"virtual_account_name"`
	AccountReference     string     `json:"accountReference,omitempty" db:"account_reference"`
	DefaultNetwork       string     `json:"defaultNetwork,omitempty" db:"default_network"`
	ReferralCode         string     `json:"referralCode,omitempty" db:"referral_code"`
	ReferredBy           string     `json:"referredBy,omitempty" db:"referred_by"`
	ReferralBonusClaimed bool       `json:"referralBonusClaimed" db:"referral_bonus_claimed"`
	IsActive             bool       `json:"isActive" db:"is_active"`
	IsBlocked            bool       `json:"isBlocked" db:"is_blocked"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
	LastActivity         *time.Time `json:"lastActivity,omitempty" db:"last_activity"`
}
