// internal/store/users.go
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, phone_number, COALESCE(name, ''), COALESCE(email, ''), wallet_balance,
	COALESCE(virtual_account_number, ''), COALESCE(virtual_account_name, ''), COALESCE(account_reference, ''),
	COALESCE(default_network, ''), COALESCE(referral_code, ''), COALESCE(referred_by, ''),
	referral_bonus_claimed, is_active, is_blocked, created_at, updated_at, last_activity`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.Name, &u.Email, &u.WalletBalance,
		&u.VirtualAccountNumber, &u.VirtualAccountName, &u.AccountReference,
		&u.DefaultNetwork, &u.ReferralCode, &u.ReferredBy,
		&u.ReferralBonusClaimed, &u.IsActive, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt, &u.LastActivity,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByPhone looks a user up by canonical phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUserNotFoundError(phone)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user by phone", err)
	}
	return user, nil
}

// GetUserByID looks a user up by primary key.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user by id", err)
	}
	return user, nil
}

// GetOrCreateUser returns the user for a phone number, registering a new one
// with a fresh referral code on first contact.
func (s *Store) GetOrCreateUser(ctx context.Context, phone, name string) (*models.User, error) {
	user, err := s.GetUserByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if serr, ok := err.(*errors.StandardError); !ok || serr.Code != errors.ErrCodeUserNotFound {
		return nil, err
	}

	id := uuid.New().String()
	referralCode := generateReferralCode()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, phone_number, name, wallet_balance, referral_code, is_active, is_blocked, created_at, updated_at)
		 VALUES ($1, $2, $3, 0, $4, TRUE, FALSE, NOW(), NOW())
		 ON CONFLICT (phone_number) DO NOTHING`,
		id, phone, name, referralCode)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("create user", err)
	}

	s.logger.Info("user registered", map[string]interface{}{
		"phone": phone,
	})

	return s.GetUserByPhone(ctx, phone)
}

// GetUserByReferralCode resolves a referrer from their code.
func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUserNotFoundError(code)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user by referral code", err)
	}
	return user, nil
}

// GetUserByAccountReference resolves the owner of a virtual account from
// the reference carried on a funding callback.
func (s *Store) GetUserByAccountReference(ctx context.Context, reference string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE account_reference = $1`, reference)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUserNotFoundError(reference)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user by account reference", err)
	}
	return user, nil
}

// SetVirtualAccount records the virtual account the payment gateway opened
// for this user.
func (s *Store) SetVirtualAccount(ctx context.Context, userID, accountNumber, accountName, reference string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET virtual_account_number = $2, virtual_account_name = $3, account_reference = $4, updated_at = NOW()
		 WHERE id = $1`,
		userID, accountNumber, accountName, reference)
	if err != nil {
		return errors.NewQueryExecutionFailedError("set virtual account", err)
	}
	return nil
}

// MarkReferralBonusClaimed flags a referred user so the bonus is paid once.
func (s *Store) MarkReferralBonusClaimed(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET referral_bonus_claimed = TRUE, updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark referral bonus claimed", err)
	}
	return nil
}

// TouchLastActivity stamps the user's most recent message time.
func (s *Store) TouchLastActivity(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_activity = $2, updated_at = NOW() WHERE id = $1`, userID, at)
	if err != nil {
		return errors.NewQueryExecutionFailedError("touch last activity", err)
	}
	return nil
}

// CountReferrals returns how many users registered with this referral code.
func (s *Store) CountReferrals(ctx context.Context, referralCode string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE referred_by = $1`, referralCode).Scan(&count)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("count referrals", err)
	}
	return count, nil
}

func generateReferralCode() string {
	return "FB" + strings.ToUpper(uuid.New().String()[:6])
}
