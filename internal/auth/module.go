// Package auth provides the authentication bounded context module.
package auth

import (
	"mentorcrm_backend/internal/auth/handler"
	"mentorcrm_backend/internal/auth/repository"
	"mentorcrm_backend/internal/auth/service"
	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/platform/config"
	"mentorcrm_backend/platform/logger"
	"mentorcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
// Login is rate limited more aggressively than the rest of the API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	m.handler.RegisterProtectedRoutes(ctx.Protected.Group("/auth"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
