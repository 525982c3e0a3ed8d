package handlers

import (
	"context"

	"invest/internal/models"
	"invest/internal/services"
	"invest/internal/store"
)

type InvestmentService interface {
	Create(ctx context.Context, req services.CreateInvestmentRequest) (models.Investment, error)
	ListForUser(ctx context.Context, userID string) ([]models.Investment, error)
	Verify(ctx context.Context, req services.VerifyRequest) (models.Investment, error)
	Stats(ctx context.Context) (services.StatsReport, error)
}

type AccrualRunner interface {
	Run(ctx context.Context, trigger services.Trigger) (services.RunSummary, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, userID string) (models.Account, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Account, error)
	Count(ctx context.Context) (int, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.AccountTransaction, error)
	UpdateProfile(ctx context.Context, update store.ProfileUpdate) (models.Account, error)
}

type RunStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthFunc adapts a plain function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
