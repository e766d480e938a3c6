// internal/store/transactions.go
package store

import (
	"context"
	"database/sql"
	"time"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/models"
)

const transactionColumns = `id, user_id, reference, type, status, amount, previous_balance, new_balance,
	COALESCE(network, ''), COALESCE(recipient_phone, ''), COALESCE(plan_name, ''),
	COALESCE(provider_reference, ''), COALESCE(token, ''), COALESCE(description, ''),
	created_at, updated_at, completed_at`

func scanTransaction(scanner interface{ Scan(...interface{}) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Reference, &t.Type, &t.Status, &t.Amount, &t.PreviousBalance, &t.NewBalance,
		&t.Network, &t.RecipientPhone, &t.PlanName,
		&t.ProviderReference, &t.Token, &t.Description,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransactionByReference fetches one transaction by its unique reference.
func (s *Store) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewTransactionNotFoundError(reference)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get transaction by reference", err)
	}
	return txn, nil
}

// ListRecentTransactions returns a user's most recent transactions, newest
// first.
func (s *Store) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list recent transactions", err)
	}
	defer rows.Close()

	transactions := []*models.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate transactions", err)
	}

	return transactions, nil
}

// MarkTransactionCompleted finalizes a transaction with the provider's
// reference and any delivered token.
func (s *Store) MarkTransactionCompleted(ctx context.Context, reference, providerRef, token string) error {
	return s.setTransactionStatus(ctx, reference, models.TxnStatusCompleted, providerRef, token)
}

// MarkTransactionFailed records a vending or payment failure.
func (s *Store) MarkTransactionFailed(ctx context.Context, reference, details string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, description = $3, updated_at = NOW() WHERE reference = $1`,
		reference, models.TxnStatusFailed, details)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark transaction failed", err)
	}
	return nil
}

// MarkTransactionReversed flags a transaction whose debit was refunded.
func (s *Store) MarkTransactionReversed(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE reference = $1`,
		reference, models.TxnStatusReversed)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark transaction reversed", err)
	}
	return nil
}

// ReferenceExists reports whether a funding reference has been seen before,
// used to drop duplicate payment-gateway callbacks.
func (s *Store) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE reference = $1)`, reference).Scan(&exists)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("check reference exists", err)
	}
	return exists, nil
}

func (s *Store) setTransactionStatus(ctx context.Context, reference string, status models.TransactionStatus, providerRef, token string) error {
	completedAt := sql.NullTime{}
	if status == models.TxnStatusCompleted {
		completedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, provider_reference = $3, token = $4, completed_at = $5, updated_at = NOW()
		 WHERE reference = $1`,
		reference, status, providerRef, token, completedAt)
	if err != nil {
		return errors.NewQueryExecutionFailedError("set transaction status", err)
	}
	return nil
}
