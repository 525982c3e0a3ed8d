package handlers

import (
	"net/http"

	"invest/internal/auth"
	"invest/internal/config"
	"invest/internal/middleware"
	"invest/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	cfg         config.Config
	logger      zerolog.Logger
	principals  *middleware.Principals
	investments InvestmentService
	accrual     AccrualRunner
	accounts    AccountStore
	runs        RunStore
	audit       AuditStore
	health      HealthChecker
	hub         *websocket.Hub
	upgrader    gorillaws.Upgrader
	metrics     http.Handler
}

func New(cfg config.Config, logger zerolog.Logger, principals *middleware.Principals, investments InvestmentService, accrual AccrualRunner, accounts AccountStore, runs RunStore, audit AuditStore, health HealthChecker, hub *websocket.Hub, metrics http.Handler) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		principals:  principals,
		investments: investments,
		accrual:     accrual,
		accounts:    accounts,
		runs:        runs,
		audit:       audit,
		health:      health,
		hub:         hub,
		upgrader:    websocket.NewUpgrader(cfg.AllowedOrigins),
		metrics:     metrics,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authn := middleware.Auth(h.cfg.JWTSecret)
	can := func(capability auth.Capability) func(http.Handler) http.Handler {
		return middleware.Require(h.principals, capability)
	}

	router.Route("/investments", func(r chi.Router) {
		r.Use(authn)
		r.With(can(auth.CreateInvestment)).Post("/", h.CreateInvestment)
		r.With(can(auth.ViewOwnAccount)).Get("/my-investments", h.MyInvestments)
		r.With(can(auth.VerifyInvestment)).Post("/verify", h.VerifyInvestment)
		r.With(can(auth.ProcessEarnings)).Post("/process-earnings", h.ProcessEarnings)
		r.With(can(auth.ViewStats)).Get("/stats", h.InvestmentStats)
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(authn, can(auth.ViewOwnAccount))
		r.Get("/me", h.Me)
		r.Get("/balance", h.Balance)
		r.Get("/transactions", h.MyTransactions)
		r.Put("/profile", h.UpdateProfile)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authn)
		r.With(can(auth.ViewAccounts)).Get("/users", h.AdminListUsers)
		r.With(can(auth.ViewAccounts)).Get("/users/{id}", h.AdminGetUser)
		r.With(can(auth.ProcessEarnings)).Get("/accrual-runs", h.AdminListAccrualRuns)
		r.With(can(auth.ViewAudit)).Get("/audit", h.AdminListAuditLogs)
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Get("/health", h.Health)
	if h.metrics != nil {
		router.Handle("/metrics", h.metrics)
	}
	return router
}
