package store

import (
	"context"
	"time"

	"invest/internal/models"

	"github.com/shopspring/decimal"
)

type InvestmentStore struct {
	db DB
}

const investmentColumns = `id, user_id, plan_type, amount, daily_return, total_return, days_accrued, status,
		       start_date, last_earning_date, chat_session_id, verified_by, verification_date, created_at, updated_at`

type ActivationInput struct {
	ID            string
	VerifiedBy    string
	ChatSessionID *string
	At            time.Time
}

// AccrualAdvance moves an active investment's checkpoint from Previous to
// Checkpoint. The update only applies while the stored checkpoint still
// equals Previous.
type AccrualAdvance struct {
	ID         string
	Previous   time.Time
	Checkpoint time.Time
	Earnings   decimal.Decimal
	Days       int
	Complete   bool
}

type StatusStat struct {
	Status      models.Status   `db:"status" json:"status"`
	Count       int             `db:"count" json:"count"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	TotalReturn decimal.Decimal `db:"total_return" json:"totalReturn"`
}

func NewInvestmentStore(db DB) *InvestmentStore {
	return &InvestmentStore{db: db}
}

func (s *InvestmentStore) Create(ctx context.Context, tx Execer, inv models.Investment) error {
	query := `
		INSERT INTO investments (id, user_id, plan_type, amount, daily_return, total_return, days_accrued, status, chat_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := tx.ExecContext(ctx, query, inv.ID, inv.UserID, inv.PlanType, inv.Amount, inv.DailyReturn, inv.TotalReturn, inv.DaysAccrued, inv.Status, inv.ChatSessionID, inv.CreatedAt)
	return err
}

func (s *InvestmentStore) GetForUpdate(ctx context.Context, tx Getter, investmentID string) (models.Investment, error) {
	var row models.Investment
	err := tx.GetContext(ctx, &row, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE id = $1
		FOR UPDATE
	`, investmentID)
	if err != nil {
		return models.Investment{}, err
	}
	return row, nil
}

func (s *InvestmentStore) ListByUser(ctx context.Context, userID string) ([]models.Investment, error) {
	var rows []models.Investment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InvestmentStore) ListActive(ctx context.Context) ([]models.Investment, error) {
	var rows []models.Investment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+investmentColumns+`
		FROM investments
		WHERE status = $1
		ORDER BY last_earning_date ASC NULLS FIRST, id
	`, models.StatusActive)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InvestmentStore) Activate(ctx context.Context, tx Execer, input ActivationInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET status = $1,
		    start_date = $2,
		    last_earning_date = $2,
		    verification_date = $2,
		    verified_by = $3,
		    chat_session_id = COALESCE($4, chat_session_id),
		    updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, models.StatusActive, input.At, input.VerifiedBy, input.ChatSessionID, input.ID, models.StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *InvestmentStore) AdvanceAccrual(ctx context.Context, tx Execer, advance AccrualAdvance) (int64, error) {
	status := models.StatusActive
	if advance.Complete {
		status = models.StatusCompleted
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET total_return = total_return + $1,
		    days_accrued = days_accrued + $2,
		    last_earning_date = $3,
		    status = $4,
		    updated_at = NOW()
		WHERE id = $5 AND status = $6 AND last_earning_date = $7
	`, advance.Earnings, advance.Days, advance.Checkpoint, status, advance.ID, models.StatusActive, advance.Previous)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *InvestmentStore) Stats(ctx context.Context) ([]StatusStat, error) {
	var rows []StatusStat
	err := s.db.SelectContext(ctx, &rows, `
		SELECT status,
		       COUNT(1) AS count,
		       COALESCE(SUM(amount), 0) AS total_amount,
		       COALESCE(SUM(total_return), 0) AS total_return
		FROM investments
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *InvestmentStore) CountInvestors(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT user_id) FROM investments`)
	return count, err
}
