package audit

import (
	"net/http"
	"time"

	apphttp "mentorcrm_backend/internal/http"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module exposes the audit trail over HTTP, implementing http.Module.
type Module struct {
	repo      *Repository
	directory *tenant.Directory
}

func NewModule(repo *Repository, directory *tenant.Directory) *Module {
	return &Module{repo: repo, directory: directory}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "audit"
}

// RegisterRoutes mounts the audit trail lookup.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/audit-entries/:entityId", m.listForEntity)
}

type entryResponse struct {
	ID         uuid.UUID `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   uuid.UUID `json:"entityId"`
	OldState   string    `json:"oldState"`
	NewState   string    `json:"newState"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m *Module) listForEntity(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("entityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid entity id", nil)
		return
	}

	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	scope, err := m.directory.ScopeFor(c.Request.Context(), id.UserID(), id.OrganizationID(), id.OrganizationID())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	entries, err := m.repo.ListForEntity(c.Request.Context(), scope, entityID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:         e.ID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OldState:   e.OldState,
			NewState:   e.NewState,
			Actor:      e.Actor,
			CreatedAt:  e.CreatedAt,
		})
	}
	httpkit.OK(c, gin.H{"entries": out})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
