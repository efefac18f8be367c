package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mentorcrm_backend/internal/assignment"
	"mentorcrm_backend/internal/audit"
	"mentorcrm_backend/internal/commission"
	"mentorcrm_backend/internal/events"
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
)

// The worker processes queued jobs: outbox delivery and lead rescoring.
// It shares the database with the API but owns no HTTP surface.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	organizationModule := organization.NewModule(pool, val, log)
	directory := organizationModule.Directory()

	auditRepo := audit.New(pool)
	outboxRepo := outbox.New(pool)

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

	whatsappClient := whatsapp.NewClient(cfg, log)
	dispatcher := notifservice.NewDispatcher(outboxRepo, whatsappClient, log)

	outboxDispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = outboxDispatcher.Close() }()
	go outboxDispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, dispatcher, leadsModule.Service(), directory, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker running", "queue", cfg.GetAsynqQueueName())
	worker.Run(ctx)
	log.Info("worker stopped")
}
