// Package assignment provides the closer roster and the lead routing engine.
package assignment

import (
	"mentorcrm_backend/internal/assignment/handler"
	"mentorcrm_backend/internal/assignment/repository"
	"mentorcrm_backend/internal/assignment/service"
	"mentorcrm_backend/internal/events"
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignment bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates and initializes the assignment module. The auditor and
// outbox are shared with the claim transaction so assignment writes, audit
// entries and notifications commit together.
func NewModule(
	pool *pgxpool.Pool,
	directory *tenant.Directory,
	auditor ports.Auditor,
	outbox ports.Outbox,
	bus events.Bus,
	cfg config.RoutingConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool, auditor, outbox)
	svc := service.New(repo, auditor, bus, cfg, log)
	h := handler.New(svc, directory, val)

	return &Module{handler: h, svc: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignment"
}

// Router exposes the routing engine to the lead state machine.
func (m *Module) Router() ports.Router {
	return m.svc
}

// RegisterRoutes mounts routing and closer roster routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterCloserRoutes(ctx.Protected.Group("/closers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
