package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorcrm_backend/internal/assignment"
	"mentorcrm_backend/internal/audit"
	"mentorcrm_backend/internal/auth"
	"mentorcrm_backend/internal/commission"
	"mentorcrm_backend/internal/events"
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/http/router"
	"mentorcrm_backend/internal/leads"
	"mentorcrm_backend/internal/notification/outbox"
	notifservice "mentorcrm_backend/internal/notification/service"
	"mentorcrm_backend/internal/organization"
	"mentorcrm_backend/internal/scheduler"
	"mentorcrm_backend/internal/whatsapp"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/db"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	organizationModule := organization.NewModule(pool, val, log)
	directory := organizationModule.Directory()

	auditRepo := audit.New(pool)
	auditModule := audit.NewModule(auditRepo, directory)
	outboxRepo := outbox.New(pool)

	authModule := auth.NewModule(pool, cfg, val, log)
	assignmentModule := assignment.NewModule(pool, directory, auditRepo, outboxRepo, eventBus, cfg, val, log)
	commissionModule := commission.NewModule(pool, directory, auditRepo, outboxRepo, eventBus, log)
	leadsModule := leads.NewModule(
		pool,
		directory,
		assignmentModule.Router(),
		commissionModule.Settler(),
		auditRepo,
		outboxRepo,
		eventBus,
		val,
		log,
	)
	leadsModule.RegisterHandlers(eventBus)

	// Background rescoring goes through the job queue when redis is
	// configured; otherwise rule changes only affect future scoring.
	if cfg.GetRedisURL() != "" {
		schedClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
		} else {
			defer func() { _ = schedClient.Close() }()
			leadsModule.SetTaskScheduler(schedClient)
		}
	} else {
		log.Warn("REDIS_URL not configured; background rescoring disabled")
	}

	// Without a job queue the API process drains the outbox itself.
	if cfg.GetRedisURL() == "" {
		whatsappClient := whatsapp.NewClient(cfg, log)
		dispatcher := notifservice.NewDispatcher(outboxRepo, whatsappClient, log)
		go dispatcher.Run(ctx, 2*time.Second)
		log.Info("in-process outbox dispatcher started")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			organizationModule,
			leadsModule,
			assignmentModule,
			commissionModule,
			auditModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
