package services

import (
	"context"
	"time"

	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/shopspring/decimal"
)

type AccountStore interface {
	GetByID(ctx context.Context, userID string) (models.Account, error)
	Count(ctx context.Context) (int, error)
	CreditEarnings(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) (int64, error)
	AddInvested(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) (int64, error)
	AppendTransaction(ctx context.Context, tx store.Execer, entry models.AccountTransaction) error
}

type InvestmentStore interface {
	Create(ctx context.Context, tx store.Execer, inv models.Investment) error
	GetForUpdate(ctx context.Context, tx store.Getter, investmentID string) (models.Investment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Investment, error)
	ListActive(ctx context.Context) ([]models.Investment, error)
	Activate(ctx context.Context, tx store.Execer, input store.ActivationInput) (int64, error)
	AdvanceAccrual(ctx context.Context, tx store.Execer, advance store.AccrualAdvance) (int64, error)
	Stats(ctx context.Context) ([]store.StatusStat, error)
	CountInvestors(ctx context.Context) (int, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type RunStore interface {
	Create(ctx context.Context, run models.AccrualRun) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type BalanceHub interface {
	Connected(userID string) bool
	BroadcastBalance(update websocket.BalanceUpdate)
}

type AccrualMetrics interface {
	RunFinished(trigger string, startedAt time.Time, duration time.Duration, counts map[string]int, credited decimal.Decimal)
}

type VerificationMetrics interface {
	InvestmentVerified()
}
