package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invest/internal/auth"
	"invest/internal/cache"
	"invest/internal/config"
	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/services"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/rs/zerolog"
)

type stubInvestmentService struct {
	createFn      func(ctx context.Context, req services.CreateInvestmentRequest) (models.Investment, error)
	listForUserFn func(ctx context.Context, userID string) ([]models.Investment, error)
	verifyFn      func(ctx context.Context, req services.VerifyRequest) (models.Investment, error)
	statsFn       func(ctx context.Context) (services.StatsReport, error)
}

func (s stubInvestmentService) Create(ctx context.Context, req services.CreateInvestmentRequest) (models.Investment, error) {
	if s.createFn == nil {
		return models.Investment{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubInvestmentService) ListForUser(ctx context.Context, userID string) ([]models.Investment, error) {
	if s.listForUserFn == nil {
		return []models.Investment{}, nil
	}
	return s.listForUserFn(ctx, userID)
}

func (s stubInvestmentService) Verify(ctx context.Context, req services.VerifyRequest) (models.Investment, error) {
	if s.verifyFn == nil {
		return models.Investment{}, nil
	}
	return s.verifyFn(ctx, req)
}

func (s stubInvestmentService) Stats(ctx context.Context) (services.StatsReport, error) {
	if s.statsFn == nil {
		return services.StatsReport{}, nil
	}
	return s.statsFn(ctx)
}

type stubAccrualRunner struct {
	runFn func(ctx context.Context, trigger services.Trigger) (services.RunSummary, error)
}

func (s stubAccrualRunner) Run(ctx context.Context, trigger services.Trigger) (services.RunSummary, error) {
	if s.runFn == nil {
		return services.RunSummary{}, nil
	}
	return s.runFn(ctx, trigger)
}

type stubAccountStore struct {
	getByIDFn          func(ctx context.Context, userID string) (models.Account, error)
	listAllFn          func(ctx context.Context, limit, offset int) ([]models.Account, error)
	countFn            func(ctx context.Context) (int, error)
	listTransactionsFn func(ctx context.Context, userID string, limit, offset int) ([]models.AccountTransaction, error)
	updateProfileFn    func(ctx context.Context, update store.ProfileUpdate) (models.Account, error)
}

func (s stubAccountStore) GetByID(ctx context.Context, userID string) (models.Account, error) {
	if s.getByIDFn == nil {
		return models.Account{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubAccountStore) ListAll(ctx context.Context, limit, offset int) ([]models.Account, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

func (s stubAccountStore) Count(ctx context.Context) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx)
}

func (s stubAccountStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.AccountTransaction, error) {
	if s.listTransactionsFn == nil {
		return nil, nil
	}
	return s.listTransactionsFn(ctx, userID, limit, offset)
}

func (s stubAccountStore) UpdateProfile(ctx context.Context, update store.ProfileUpdate) (models.Account, error) {
	if s.updateProfileFn == nil {
		return models.Account{ID: update.ID, Username: update.Username, Email: update.Email, FullName: update.FullName}, nil
	}
	return s.updateProfileFn(ctx, update)
}

type stubRunStore struct {
	listRecentFn func(ctx context.Context, limit int) ([]models.AccrualRun, error)
}

func (s stubRunStore) ListRecent(ctx context.Context, limit int) ([]models.AccrualRun, error) {
	if s.listRecentFn == nil {
		return nil, nil
	}
	return s.listRecentFn(ctx, limit)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubRoleStore map[string]string

func (s stubRoleStore) GetRole(ctx context.Context, userID string) (string, error) {
	role, ok := s[userID]
	if !ok {
		return "user", nil
	}
	return role, nil
}

type testDeps struct {
	appEnv      string
	roles       stubRoleStore
	investments InvestmentService
	accrual     AccrualRunner
	accounts    AccountStore
	runs        RunStore
	audit       AuditStore
	health      HealthChecker
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:         deps.appEnv,
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: []string{"*"},
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "test"
	}
	if deps.roles == nil {
		deps.roles = stubRoleStore{}
	}
	if deps.investments == nil {
		deps.investments = stubInvestmentService{}
	}
	if deps.accrual == nil {
		deps.accrual = stubAccrualRunner{}
	}
	if deps.accounts == nil {
		deps.accounts = stubAccountStore{}
	}
	if deps.runs == nil {
		deps.runs = stubRunStore{}
	}
	if deps.audit == nil {
		deps.audit = stubAuditStore{}
	}
	if deps.health == nil {
		deps.health = HealthFunc(func(context.Context) error { return nil })
	}
	principals := middleware.NewPrincipals(deps.roles, cache.NewTTL[auth.Role](time.Minute, time.Minute))
	return New(cfg, zerolog.Nop(), principals, deps.investments, deps.accrual, deps.accounts, deps.runs, deps.audit, deps.health, websocket.NewHub(), nil)
}

func doRequest(t *testing.T, h *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
