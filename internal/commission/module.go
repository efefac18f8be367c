// Package commission provides the referral commission bounded context.
package commission

import (
	"mentorcrm_backend/internal/commission/handler"
	"mentorcrm_backend/internal/commission/repository"
	"mentorcrm_backend/internal/commission/service"
	"mentorcrm_backend/internal/events"
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/leads/ports"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the commission bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates and initializes the commission module.
func NewModule(
	pool *pgxpool.Pool,
	directory *tenant.Directory,
	auditor ports.Auditor,
	outbox ports.Outbox,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, auditor, outbox, bus, log)
	h := handler.New(svc, directory)

	return &Module{handler: h, svc: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "commission"
}

// Settler exposes the commission engine to the lead state machine.
func (m *Module) Settler() ports.CommissionSettler {
	return m.svc
}

// RegisterRoutes mounts commission routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/commissions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
