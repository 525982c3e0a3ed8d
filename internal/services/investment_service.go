package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"invest/internal/db"
	"invest/internal/events"
	"invest/internal/models"
	"invest/internal/money"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPlan          = errors.New("invalid plan type")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvestmentNotFound   = errors.New("investment not found")
	ErrInvestmentNotPending = errors.New("investment is not pending")
	ErrAccountNotFound      = errors.New("account not found")
)

type InvestmentService struct {
	txRunner    db.TxRunner
	investments InvestmentStore
	accounts    AccountStore
	audit       AuditStore
	publisher   EventPublisher
	hub         BalanceHub
	metrics     VerificationMetrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewInvestmentService(txRunner db.TxRunner, investments InvestmentStore, accounts AccountStore, audit AuditStore, publisher EventPublisher, hub BalanceHub, metrics VerificationMetrics, logger zerolog.Logger) *InvestmentService {
	return &InvestmentService{
		txRunner:    txRunner,
		investments: investments,
		accounts:    accounts,
		audit:       audit,
		publisher:   publisher,
		hub:         hub,
		metrics:     metrics,
		logger:      logger.With().Str("component", "investments").Logger(),
		now:         time.Now,
	}
}

type CreateInvestmentRequest struct {
	UserID        string
	PlanType      string
	Amount        decimal.Decimal
	ChatSessionID *string
}

func (s *InvestmentService) Create(ctx context.Context, req CreateInvestmentRequest) (models.Investment, error) {
	planType, err := models.ParsePlanType(req.PlanType)
	if err != nil {
		return models.Investment{}, fmt.Errorf("%w: %q", ErrInvalidPlan, req.PlanType)
	}
	if err := money.ValidatePrincipal(req.Amount); err != nil {
		return models.Investment{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if _, err := s.accounts.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Investment{}, ErrAccountNotFound
		}
		return models.Investment{}, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	inv := models.Investment{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		PlanType:      planType,
		Amount:        req.Amount,
		DailyReturn:   models.DailyReturnFor(planType, req.Amount),
		TotalReturn:   decimal.Zero,
		Status:        models.StatusPending,
		ChatSessionID: req.ChatSessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.investments.Create(ctx, tx, inv); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"plan_type": string(planType),
			"amount":    inv.Amount.String(),
		})
		return s.audit.Log(ctx, tx, req.UserID, "create_investment", "investment", inv.ID, string(data))
	})
	if err != nil {
		return models.Investment{}, err
	}
	return inv, nil
}

func (s *InvestmentService) ListForUser(ctx context.Context, userID string) ([]models.Investment, error) {
	rows, err := s.investments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Investment{}
	}
	return rows, nil
}

type VerifyRequest struct {
	ActorID       string
	InvestmentID  string
	VerifiedBy    string
	ChatSessionID *string
}

// Verify activates a pending investment and adds its principal to the owner's
// totalInvested. The accrual clock starts at the verification instant.
func (s *InvestmentService) Verify(ctx context.Context, req VerifyRequest) (models.Investment, error) {
	verifier := req.VerifiedBy
	if verifier == "" {
		verifier = req.ActorID
	}
	now := s.now().UTC().Truncate(time.Microsecond)

	var activated models.Investment
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inv, err := s.investments.GetForUpdate(ctx, tx, req.InvestmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInvestmentNotFound
			}
			return err
		}
		if !inv.Status.CanTransitionTo(models.StatusActive) {
			return fmt.Errorf("%w: status is %s", ErrInvestmentNotPending, inv.Status)
		}
		rows, err := s.investments.Activate(ctx, tx, store.ActivationInput{
			ID:            inv.ID,
			VerifiedBy:    verifier,
			ChatSessionID: req.ChatSessionID,
			At:            now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvestmentNotPending
		}
		rows, err = s.accounts.AddInvested(ctx, tx, inv.UserID, inv.Amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, inv.UserID)
		}
		data, _ := json.Marshal(map[string]string{
			"verified_by": verifier,
			"user_id":     inv.UserID,
			"amount":      inv.Amount.String(),
		})
		if err := s.audit.Log(ctx, tx, req.ActorID, "verify_investment", "investment", inv.ID, string(data)); err != nil {
			return err
		}

		inv.Status = models.StatusActive
		inv.StartDate = &now
		inv.LastEarningDate = &now
		inv.VerificationDate = &now
		inv.VerifiedBy = &verifier
		if req.ChatSessionID != nil {
			inv.ChatSessionID = req.ChatSessionID
		}
		inv.UpdatedAt = now
		activated = inv
		return nil
	})
	if err != nil {
		return models.Investment{}, err
	}

	s.metrics.InvestmentVerified()
	if err := s.publisher.Publish(ctx, events.InvestmentActivatedKey, events.InvestmentActivated{
		EventID:      uuid.NewString(),
		InvestmentID: activated.ID,
		UserID:       activated.UserID,
		Amount:       activated.Amount,
		VerifiedBy:   verifier,
		ActivatedAt:  now,
	}); err != nil {
		s.logger.Warn().Err(err).Str("investment_id", activated.ID).Msg("event publish failed")
	}
	if s.hub.Connected(activated.UserID) {
		if account, err := s.accounts.GetByID(ctx, activated.UserID); err == nil {
			s.hub.BroadcastBalance(websocket.UpdateFromAccount(account, "investment_verified"))
		}
	}
	s.logger.Info().
		Str("investment_id", activated.ID).
		Str("user_id", activated.UserID).
		Str("verified_by", verifier).
		Msg("investment activated")
	return activated, nil
}

type StatsReport struct {
	Stats          []store.StatusStat `json:"stats"`
	TotalUsers     int                `json:"totalUsers"`
	TotalInvestors int                `json:"totalInvestors"`
}

func (s *InvestmentService) Stats(ctx context.Context) (StatsReport, error) {
	stats, err := s.investments.Stats(ctx)
	if err != nil {
		return StatsReport{}, err
	}
	if stats == nil {
		stats = []store.StatusStat{}
	}
	users, err := s.accounts.Count(ctx)
	if err != nil {
		return StatsReport{}, err
	}
	investors, err := s.investments.CountInvestors(ctx)
	if err != nil {
		return StatsReport{}, err
	}
	return StatsReport{Stats: stats, TotalUsers: users, TotalInvestors: investors}, nil
}
