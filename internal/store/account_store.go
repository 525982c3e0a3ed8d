package store

import (
	"context"
	"errors"

	"invest/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ErrDuplicate reports a unique constraint violation, such as a username or
// email already held by another account.
var ErrDuplicate = errors.New("duplicate value")

type AccountStore struct {
	db DB
}

type AccountInput struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash *string
	Role         string
}

const accountColumns = `id, username, email, full_name, password_hash, role, balance, total_invested, total_earnings, created_at, updated_at`

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, input AccountInput) error {
	query := `
		INSERT INTO users (id, username, email, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, input.ID, input.Username, input.Email, input.FullName, input.PasswordHash, input.Role)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

type ProfileUpdate struct {
	ID       string
	Username string
	Email    string
	FullName string
}

// UpdateProfile rewrites the editable profile fields and returns the stored row.
func (s *AccountStore) UpdateProfile(ctx context.Context, update ProfileUpdate) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		UPDATE users
		SET username = $1, email = $2, full_name = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+accountColumns, update.Username, update.Email, update.FullName, update.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Account{}, ErrDuplicate
		}
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, userID)
	return role, err
}

func (s *AccountStore) SetRole(ctx context.Context, tx Execer, userID, role string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET role = $1, updated_at = NOW()
		WHERE id = $2
	`, role, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) ListAll(ctx context.Context, limit, offset int) ([]models.Account, error) {
	var rows []models.Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM users`)
	return count, err
}

// CreditEarnings increments balance and lifetime earnings in one statement.
func (s *AccountStore) CreditEarnings(ctx context.Context, tx Execer, userID string, amount decimal.Decimal) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = balance + $1, total_earnings = total_earnings + $1, updated_at = NOW()
		WHERE id = $2
	`, amount, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) AddInvested(ctx context.Context, tx Execer, userID string, amount decimal.Decimal) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET total_invested = total_invested + $1, updated_at = NOW()
		WHERE id = $2
	`, amount, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) AppendTransaction(ctx context.Context, tx Execer, entry models.AccountTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_transactions (id, user_id, kind, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Kind, entry.Amount, entry.Reason, entry.CreatedAt)
	return err
}

func (s *AccountStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.AccountTransaction, error) {
	var rows []models.AccountTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, kind, amount, reason, created_at
		FROM account_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
