// Package organization provides the organization settings bounded context.
package organization

import (
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/organization/handler"
	"mentorcrm_backend/internal/organization/repository"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the organization bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	directory *tenant.Directory
	repo      *repository.Repository
}

// NewModule creates and initializes the organization module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	directory := tenant.NewDirectory(repo, log)
	h := handler.New(directory, val)

	return &Module{
		handler:   h,
		directory: directory,
		repo:      repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "organization"
}

// Directory returns the tenant directory for use by other modules.
func (m *Module) Directory() *tenant.Directory {
	return m.directory
}

// RegisterRoutes mounts organization routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/organizations"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
