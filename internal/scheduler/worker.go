package scheduler

import (
	"context"
	"errors"
	"fmt"

	leadsservice "mentorcrm_backend/internal/leads/service"
	notifservice "mentorcrm_backend/internal/notification/service"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/apperr"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *notifservice.Dispatcher
	leads      *leadsservice.Service
	directory  *tenant.Directory
	log        *logger.Logger
}

func NewWorker(
	cfg config.SchedulerConfig,
	dispatcher *notifservice.Dispatcher,
	leads *leadsservice.Service,
	directory *tenant.Directory,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		leads:      leads,
		directory:  directory,
		log:        log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskLeadRescore, w.handleLeadRescore)

	return w, nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.dispatcher.DeliverByID(ctx, outboxID)
}

func (w *Worker) handleLeadRescore(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRescorePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	scope, err := w.directory.SystemScope(ctx, orgID)
	if err != nil {
		// a deactivated organization drops its queued work
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
			w.log.Warn("rescore skipped", "organization_id", orgID, "reason", appErr.Message)
			return nil
		}
		return err
	}

	if _, err := w.leads.ScoreLead(ctx, scope, leadID); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
