package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invest/internal/db"
	"invest/internal/events"
	"invest/internal/metrics"
	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrRunInProgress      = errors.New("accrual run already in progress")
	ErrMissingCheckpoint  = errors.New("active investment has no last earning date")
	ErrCheckpointInFuture = errors.New("last earning date is in the future")

	errCheckpointMoved = errors.New("checkpoint moved by another writer")
)

const day = 24 * time.Hour

type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerSchedule Trigger = "schedule"
)

type RunFailure struct {
	InvestmentID string `json:"investmentId"`
	Reason       string `json:"reason"`
}

type RunSummary struct {
	RunID         string          `json:"runId"`
	Trigger       Trigger         `json:"trigger"`
	Processed     int             `json:"processed"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	Completed     int             `json:"completed"`
	Interrupted   int             `json:"interrupted"`
	TotalCredited decimal.Decimal `json:"totalCredited"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	Failures      []RunFailure    `json:"failures"`
}

// AccrualJob credits whole elapsed days of daily return on every active
// investment. Each investment is settled in its own transaction, so one bad
// record never blocks the rest of the batch.
type AccrualJob struct {
	txRunner    db.TxRunner
	investments InvestmentStore
	accounts    AccountStore
	runs        RunStore
	publisher   EventPublisher
	hub         BalanceHub
	metrics     AccrualMetrics
	logger      zerolog.Logger

	now  func() time.Time
	slot chan struct{}
}

func NewAccrualJob(txRunner db.TxRunner, investments InvestmentStore, accounts AccountStore, runs RunStore, publisher EventPublisher, hub BalanceHub, metrics AccrualMetrics, logger zerolog.Logger) *AccrualJob {
	return &AccrualJob{
		txRunner:    txRunner,
		investments: investments,
		accounts:    accounts,
		runs:        runs,
		publisher:   publisher,
		hub:         hub,
		metrics:     metrics,
		logger:      logger.With().Str("component", "accrual").Logger(),
		now:         time.Now,
		slot:        make(chan struct{}, 1),
	}
}

type accrualOutcome int

const (
	outcomeSkipped accrualOutcome = iota
	outcomeProcessed
)

type accrualResult struct {
	outcome   accrualOutcome
	days      int
	earnings  decimal.Decimal
	completed bool
}

// Run settles all active investments against a single clock reading. Callers
// that arrive while another run holds the slot wait for it; if ctx ends
// first, Run returns ErrRunInProgress.
func (j *AccrualJob) Run(ctx context.Context, trigger Trigger) (RunSummary, error) {
	select {
	case j.slot <- struct{}{}:
	case <-ctx.Done():
		return RunSummary{}, fmt.Errorf("%w: %v", ErrRunInProgress, ctx.Err())
	}
	defer func() { <-j.slot }()

	// Postgres keeps microseconds; the checkpoint compare must round-trip exactly.
	now := j.now().UTC().Truncate(time.Microsecond)
	summary := RunSummary{
		RunID:         uuid.NewString(),
		Trigger:       trigger,
		TotalCredited: decimal.Zero,
		StartedAt:     now,
		Failures:      []RunFailure{},
	}
	logger := j.logger.With().Str("run_id", summary.RunID).Str("trigger", string(trigger)).Logger()
	wallStart := time.Now()

	active, err := j.investments.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("list active investments: %w", err)
	}

	credited := make(map[string]struct{})
	var runErr error
	for i, inv := range active {
		if err := ctx.Err(); err != nil {
			runErr = err
			summary.Interrupted = len(active) - i
			break
		}
		result, err := j.accrue(ctx, inv, now)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RunFailure{InvestmentID: inv.ID, Reason: err.Error()})
			logger.Error().Err(err).Str("investment_id", inv.ID).Str("user_id", inv.UserID).Msg("accrual failed")
			continue
		}
		if result.completed {
			summary.Completed++
		}
		if result.outcome == outcomeSkipped {
			summary.Skipped++
			continue
		}
		summary.Processed++
		summary.TotalCredited = summary.TotalCredited.Add(result.earnings)
		credited[inv.UserID] = struct{}{}
		logger.Debug().
			Str("investment_id", inv.ID).
			Int("days", result.days).
			Str("earnings", result.earnings.String()).
			Bool("completed", result.completed).
			Msg("earnings credited")
		j.publish(ctx, events.EarningsCreditedKey, events.EarningsCredited{
			EventID:      uuid.NewString(),
			InvestmentID: inv.ID,
			UserID:       inv.UserID,
			Days:         result.days,
			Earnings:     result.earnings,
			Completed:    result.completed,
			CreditedAt:   now,
		})
	}

	// Credits already committed must be recorded even if the caller went away.
	bookkeeping := context.WithoutCancel(ctx)
	summary.FinishedAt = j.now().UTC()
	j.finish(bookkeeping, logger, summary, time.Since(wallStart))
	j.pushBalances(bookkeeping, credited)

	if runErr != nil {
		return summary, fmt.Errorf("accrual run interrupted: %w", runErr)
	}
	return summary, nil
}

func (j *AccrualJob) accrue(ctx context.Context, inv models.Investment, now time.Time) (accrualResult, error) {
	if inv.LastEarningDate == nil {
		return accrualResult{}, ErrMissingCheckpoint
	}
	// An unknown plan has no term and would otherwise be closed with nothing paid.
	if !inv.PlanType.Valid() {
		return accrualResult{}, fmt.Errorf("%w: %q", models.ErrUnknownPlan, inv.PlanType)
	}
	previous := *inv.LastEarningDate
	if previous.After(now) {
		return accrualResult{}, fmt.Errorf("%w: %s", ErrCheckpointInFuture, previous.Format(time.RFC3339))
	}
	elapsed := int(now.Sub(previous) / day)
	if elapsed < 1 {
		return accrualResult{outcome: outcomeSkipped}, nil
	}

	days := min(elapsed, inv.RemainingDays())
	earnings := inv.DailyReturn.Mul(decimal.NewFromInt(int64(days)))
	complete := inv.DaysAccrued+days >= inv.PlanType.TermDays()

	err := j.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := j.investments.AdvanceAccrual(ctx, tx, store.AccrualAdvance{
			ID:         inv.ID,
			Previous:   previous,
			Checkpoint: now,
			Earnings:   earnings,
			Days:       days,
			Complete:   complete,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return errCheckpointMoved
		}
		if !earnings.IsPositive() {
			return nil
		}
		rows, err = j.accounts.CreditEarnings(ctx, tx, inv.UserID, earnings)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, inv.UserID)
		}
		return j.accounts.AppendTransaction(ctx, tx, models.AccountTransaction{
			ID:        uuid.NewString(),
			UserID:    inv.UserID,
			Kind:      models.Credit,
			Amount:    earnings,
			Reason:    fmt.Sprintf("Daily earnings: %s plan, %d day(s)", inv.PlanType, days),
			CreatedAt: now,
		})
	})
	if errors.Is(err, errCheckpointMoved) {
		return accrualResult{outcome: outcomeSkipped}, nil
	}
	if err != nil {
		return accrualResult{}, err
	}
	if days == 0 {
		// Term already exhausted; the update only closed the investment.
		return accrualResult{outcome: outcomeSkipped, completed: complete}, nil
	}
	return accrualResult{outcome: outcomeProcessed, days: days, earnings: earnings, completed: complete}, nil
}

func (j *AccrualJob) finish(ctx context.Context, logger zerolog.Logger, summary RunSummary, elapsed time.Duration) {
	if err := j.runs.Create(ctx, models.AccrualRun{
		ID:            summary.RunID,
		Trigger:       string(summary.Trigger),
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
		Processed:     summary.Processed,
		Skipped:       summary.Skipped,
		Failed:        summary.Failed,
		Completed:     summary.Completed,
		Interrupted:   summary.Interrupted,
		TotalCredited: summary.TotalCredited,
	}); err != nil {
		logger.Error().Err(err).Msg("failed to record accrual run")
	}

	j.metrics.RunFinished(string(summary.Trigger), summary.StartedAt, elapsed, map[string]int{
		metrics.OutcomeProcessed:   summary.Processed,
		metrics.OutcomeSkipped:     summary.Skipped,
		metrics.OutcomeFailed:      summary.Failed,
		metrics.OutcomeCompleted:   summary.Completed,
		metrics.OutcomeInterrupted: summary.Interrupted,
	}, summary.TotalCredited)

	j.publish(ctx, events.AccrualCompletedKey, events.AccrualCompleted{
		EventID:       uuid.NewString(),
		RunID:         summary.RunID,
		Trigger:       string(summary.Trigger),
		Processed:     summary.Processed,
		Skipped:       summary.Skipped,
		Failed:        summary.Failed,
		Completed:     summary.Completed,
		Interrupted:   summary.Interrupted,
		TotalCredited: summary.TotalCredited,
		FinishedAt:    summary.FinishedAt,
	})

	logger.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("completed", summary.Completed).
		Int("interrupted", summary.Interrupted).
		Str("total_credited", summary.TotalCredited.String()).
		Dur("elapsed", elapsed).
		Msg("accrual run finished")
}

func (j *AccrualJob) publish(ctx context.Context, key string, payload any) {
	if err := j.publisher.Publish(ctx, key, payload); err != nil {
		j.logger.Warn().Err(err).Str("routing_key", key).Msg("event publish failed")
	}
}

func (j *AccrualJob) pushBalances(ctx context.Context, userIDs map[string]struct{}) {
	for userID := range userIDs {
		if !j.hub.Connected(userID) {
			continue
		}
		account, err := j.accounts.GetByID(ctx, userID)
		if err != nil {
			j.logger.Warn().Err(err).Str("user_id", userID).Msg("balance push skipped")
			continue
		}
		j.hub.BroadcastBalance(websocket.UpdateFromAccount(account, "earnings"))
	}
}
