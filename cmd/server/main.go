package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invest/internal/auth"
	"invest/internal/cache"
	"invest/internal/config"
	"invest/internal/db"
	"invest/internal/events"
	"invest/internal/handlers"
	"invest/internal/logging"
	"invest/internal/metrics"
	"invest/internal/middleware"
	"invest/internal/retry"
	"invest/internal/scheduler"
	"invest/internal/services"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.BaseDelay = cfg.RetryBaseDelay
	txRunner := db.NewTxRunner(database, policy)

	accounts := store.NewAccountStore(database)
	investments := store.NewInvestmentStore(database)
	audit := store.NewAuditStore(database)
	runs := store.NewAccrualRunStore(database)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	registry := metrics.New()
	hub := websocket.NewHub()
	principals := middleware.NewPrincipals(accounts, cache.NewTTL[auth.Role](cfg.PrincipalCacheTTL, cfg.PrincipalCacheCleanup))

	investmentService := services.NewInvestmentService(txRunner, investments, accounts, audit, publisher, hub, registry, logger)
	accrual := services.NewAccrualJob(txRunner, investments, accounts, runs, publisher, hub, registry, logger)

	var jobs *scheduler.Scheduler
	if cfg.AccrualEnabled {
		jobs, err = scheduler.New(cfg.AccrualTimezone, time.Hour, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create scheduler")
		}
		err = jobs.Add("accrual", cfg.AccrualSchedule, func(ctx context.Context) error {
			_, err := accrual.Run(ctx, services.TriggerSchedule)
			return err
		})
		if err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.AccrualSchedule).Msg("invalid accrual schedule")
		}
		jobs.Start()
		logger.Info().Time("next_run", jobs.Next()).Msg("accrual scheduler started")
	}

	health := handlers.HealthFunc(func(ctx context.Context) error {
		return db.Ping(ctx, database)
	})
	handler := handlers.New(cfg, logger, principals, investmentService, accrual, accounts, runs, audit, health, hub, registry.Handler(logger))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.AppEnv).Msg("investment API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if jobs != nil {
		if err := jobs.Stop(ctx); err != nil {
			logger.Warn().Err(err).Msg("accrual run still in flight at shutdown")
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

type closingPublisher interface {
	services.EventPublisher
	Close() error
}

func newPublisher(cfg config.Config, logger zerolog.Logger) closingPublisher {
	if cfg.RabbitMQURL == "" {
		logger.Info().Msg("RABBITMQ_URL not set, domain events disabled")
		return events.Nop{}
	}
	publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect rabbitmq")
	}
	return publisher
}
