// Package leads provides the lead lifecycle bounded context module.
package leads

import (
	"context"

	"mentorcrm_backend/internal/events"
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/leads/handler"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/leads/repository"
	"mentorcrm_backend/internal/leads/service"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	service       *service.Service
	repo          *repository.Repository
}

// NewModule creates and initializes the leads module. Router, commission
// settler, auditor and outbox come from their own bounded contexts.
func NewModule(
	pool *pgxpool.Pool,
	directory *tenant.Directory,
	router ports.Router,
	commission ports.CommissionSettler,
	auditor ports.Auditor,
	outbox ports.Outbox,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, router, commission, auditor, outbox, bus, log)
	h := handler.New(svc, directory, val)
	ph := handler.NewPublic(svc, directory, val)

	return &Module{
		handler:       h,
		publicHandler: ph,
		service:       svc,
		repo:          repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetTaskScheduler attaches the job queue client for background rescoring.
func (m *Module) SetTaskScheduler(scheduler ports.TaskScheduler) {
	m.service.SetTaskScheduler(scheduler)
}

// RegisterHandlers subscribes to capacity events so queued leads are
// re-routed as soon as a closer frees up.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.CloserCapacityReleased{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CloserCapacityReleased:
		return m.service.RequeueUnassigned(ctx, e.OrganizationID)
	default:
		return nil
	}
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.publicHandler.RegisterRoutes(ctx.Public)
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterConfigRoutes(ctx.Protected.Group("/scoring-configuration"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
