// internal/store/store_test.go
package store

import (
	"context"
	"testing"
	"time"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userTestColumns = []string{
	"id", "phone_number", "name", "email", "wallet_balance",
	"virtual_account_number", "virtual_account_name", "account_reference",
	"default_network", "referral_code", "referred_by",
	"referral_bonus_claimed", "is_active", "is_blocked", "created_at", "updated_at", "last_activity",
}

var transactionTestColumns = []string{
	"id", "user_id", "reference", "type", "status", "amount", "previous_balance", "new_balance",
	"network", "recipient_phone", "plan_name", "provider_reference", "token", "description",
	"created_at", "updated_at", "completed_at",
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func userRow(id, phone string, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userTestColumns).AddRow(
		id, phone, "Ada", "", balance,
		"", "", "",
		"", "FBABC123", "",
		false, true, false, now, now, nil,
	)
}

func TestGetUserByPhone_Found(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348012345678").
		WillReturnRows(userRow("user-1", "2348012345678", 5000))

	user, err := s.GetUserByPhone(context.Background(), "2348012345678")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, int64(5000), user.WalletBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByPhone_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348000000000").
		WillReturnRows(sqlmock.NewRows(userTestColumns))

	_, err := s.GetUserByPhone(context.Background(), "2348000000000")
	require.Error(t, err)

	serr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUserNotFound, serr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateUser_CreatesOnFirstContact(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348012345678").
		WillReturnRows(sqlmock.NewRows(userTestColumns))

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348012345678").
		WillReturnRows(userRow("user-1", "2348012345678", 0))

	user, err := s.GetOrCreateUser(context.Background(), "2348012345678", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "2348012345678", user.PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateUser_ExistingUser(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone_number = \$1`).
		WithArgs("2348012345678").
		WillReturnRows(userRow("user-1", "2348012345678", 1200))

	user, err := s.GetOrCreateUser(context.Background(), "2348012345678", "")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditWallet(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow(500))
	mock.ExpectExec(`UPDATE users SET wallet_balance = \$2`).
		WithArgs("user-1", int64(1500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	txn, err := s.CreditWallet(context.Background(), WalletOp{
		UserID:      "user-1",
		Amount:      1000,
		Type:        models.TxnTypeWalletFunding,
		Reference:   "PAY-REF-1",
		Description: "wallet funding",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), txn.PreviousBalance)
	assert.Equal(t, int64(1500), txn.NewBalance)
	assert.Equal(t, "PAY-REF-1", txn.Reference)
	assert.Equal(t, models.TxnStatusPending, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitWallet_InsufficientBalance(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow(100))
	mock.ExpectRollback()

	_, err := s.DebitWallet(context.Background(), WalletOp{
		UserID: "user-1",
		Amount: 1000,
		Type:   models.TxnTypeAirtime,
	})
	require.Error(t, err)

	serr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInsufficientBalance, serr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitWallet_Success(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow(5000))
	mock.ExpectExec(`UPDATE users SET wallet_balance = \$2`).
		WithArgs("user-1", int64(4000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	txn, err := s.DebitWallet(context.Background(), WalletOp{
		UserID:         "user-1",
		Amount:         1000,
		Type:           models.TxnTypeAirtime,
		RecipientPhone: "2348012345678",
		Description:    "airtime purchase",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), txn.NewBalance)
	assert.NotEmpty(t, txn.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitWallet_RejectsNonPositiveAmount(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.DebitWallet(context.Background(), WalletOp{UserID: "user-1", Amount: 0})
	assert.Error(t, err)

	_, err = s.CreditWallet(context.Background(), WalletOp{UserID: "user-1", Amount: -5})
	assert.Error(t, err)
}

func TestListRecentTransactions(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	rows := sqlmock.NewRows(transactionTestColumns).
		AddRow("txn-2", "user-1", "FB-AIRTIME-002", "airtime", "completed", 500, 2000, 1500,
			"", "2348012345678", "", "TPM-2", "", "airtime purchase", now, now, now).
		AddRow("txn-1", "user-1", "FB-DATA-001", "data", "completed", 300, 2300, 2000,
			"mtn", "2348012345678", "1.0GB MTN", "TPM-1", "", "data purchase", now, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE user_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("user-1", 5).
		WillReturnRows(rows)

	transactions, err := s.ListRecentTransactions(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "FB-AIRTIME-002", transactions[0].Reference)
	assert.Equal(t, models.TxnTypeData, transactions[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTransactionCompleted(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE transactions SET status = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.MarkTransactionCompleted(context.Background(), "FB-AIRTIME-001", "TPM-99", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceExists(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("PAY-REF-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.ReferenceExists(context.Background(), "PAY-REF-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference(models.TxnTypeAirtime)
	assert.Contains(t, ref, "FB-AIRTIME-")
	assert.NotEqual(t, ref, GenerateReference(models.TxnTypeAirtime))
}
