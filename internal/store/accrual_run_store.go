package store

import (
	"context"

	"invest/internal/models"
)

type AccrualRunStore struct {
	db DB
}

func NewAccrualRunStore(db DB) *AccrualRunStore {
	return &AccrualRunStore{db: db}
}

func (s *AccrualRunStore) Create(ctx context.Context, run models.AccrualRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accrual_runs (id, trigger, started_at, finished_at, processed, skipped, failed, completed, interrupted, total_credited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.Trigger, run.StartedAt, run.FinishedAt, run.Processed, run.Skipped, run.Failed, run.Completed, run.Interrupted, run.TotalCredited)
	return err
}

func (s *AccrualRunStore) ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error) {
	var rows []models.AccrualRun
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, trigger, started_at, finished_at, processed, skipped, failed, completed, interrupted, total_credited
		FROM accrual_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
