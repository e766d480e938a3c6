// internal/store/wallet.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/models"

	"github.com/google/uuid"
)

// WalletOp describes a credit or debit to apply atomically.
type WalletOp struct {
	UserID         string
	Amount         int64
	Type           models.TransactionType
	Reference      string
	Description    string
	Network        string
	RecipientPhone string
	PlanName       string
}

// CreditWallet adds funds to a user's wallet and records the ledger entry in
// the same database transaction. The row is locked for the duration so
// concurrent credits and debits serialize.
func (s *Store) CreditWallet(ctx context.Context, op WalletOp) (*models.Transaction, error) {
	if op.Amount <= 0 {
		return nil, errors.NewBusinessRuleError("credit amount must be positive", fmt.Sprintf("amount: %d", op.Amount))
	}
	return s.applyWalletOp(ctx, op, false)
}

// DebitWallet removes funds from a user's wallet, failing with an
// insufficient-balance error when the wallet cannot cover the amount.
func (s *Store) DebitWallet(ctx context.Context, op WalletOp) (*models.Transaction, error) {
	if op.Amount <= 0 {
		return nil, errors.NewBusinessRuleError("debit amount must be positive", fmt.Sprintf("amount: %d", op.Amount))
	}
	return s.applyWalletOp(ctx, op, true)
}

func (s *Store) applyWalletOp(ctx context.Context, op WalletOp, debit bool) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, op.UserID).Scan(&balance)
	if err != nil {
		return nil, errors.NewUserNotFoundError(op.UserID)
	}

	delta := op.Amount
	if debit {
		if balance < op.Amount {
			return nil, errors.NewInsufficientBalanceError(balance, op.Amount)
		}
		delta = -op.Amount
	}
	newBalance := balance + delta

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = $2, updated_at = NOW() WHERE id = $1`,
		op.UserID, newBalance)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("update wallet balance", err)
	}

	reference := op.Reference
	if reference == "" {
		reference = GenerateReference(op.Type)
	}

	now := time.Now().UTC()
	txn := &models.Transaction{
		ID:              uuid.New().String(),
		UserID:          op.UserID,
		Reference:       reference,
		Type:            op.Type,
		Status:          models.TxnStatusPending,
		Amount:          op.Amount,
		PreviousBalance: balance,
		NewBalance:      newBalance,
		Network:         op.Network,
		RecipientPhone:  op.RecipientPhone,
		PlanName:        op.PlanName,
		Description:     op.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, reference, type, status, amount, previous_balance, new_balance,
			network, recipient_phone, plan_name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		txn.ID, txn.UserID, txn.Reference, txn.Type, txn.Status, txn.Amount, txn.PreviousBalance, txn.NewBalance,
		txn.Network, txn.RecipientPhone, txn.PlanName, txn.Description, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, &errors.StandardError{
				Code:      errors.ErrCodeDuplicateReference,
				Message:   "Transaction reference already processed",
				Details:   reference,
				Retryable: false,
				Timestamp: time.Now(),
			}
		}
		return nil, errors.NewQueryExecutionFailedError("insert transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("commit wallet op", err)
	}

	s.logger.Info("wallet updated", map[string]interface{}{
		"userId":     op.UserID,
		"type":       op.Type,
		"amount":     op.Amount,
		"newBalance": newBalance,
		"reference":  reference,
	})

	return txn, nil
}

// GenerateReference produces a unique transaction reference like
// FB-AIRTIME-1A2B3C4D.
func GenerateReference(txnType models.TransactionType) string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("FB-%s-%s", strings.ToUpper(string(txnType)), short)
}
