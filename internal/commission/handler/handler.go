package handler

import (
	"net/http"

	"mentorcrm_backend/internal/commission/repository"
	"mentorcrm_backend/internal/commission/service"
	"mentorcrm_backend/internal/commission/transport"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidID = "invalid id"

type Handler struct {
	svc       *service.Service
	directory *tenant.Directory
}

func New(svc *service.Service, directory *tenant.Directory) *Handler {
	return &Handler{svc: svc, directory: directory}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListCommissions)
	rg.GET("/:id", h.GetCommission)
	rg.POST("/:id/mark-paid", h.PayCommission)
	rg.POST("/:id/cancel-and-recreate", h.CancelAndRecreate)
}

func (h *Handler) scope(c *gin.Context) (tenant.Scope, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return tenant.Scope{}, false
	}

	scope, err := h.directory.ScopeFor(c.Request.Context(), id.UserID(), id.OrganizationID(), id.OrganizationID())
	if err != nil {
		httpkit.HandleError(c, err)
		return tenant.Scope{}, false
	}
	return scope, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ListCommissions(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	filter := repository.ListFilter{Status: c.Query("status")}
	if raw := c.Query("referrerId"); raw != "" {
		referrerID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid referrer id", nil)
			return
		}
		filter.ReferrerID = &referrerID
	}

	commissions, err := h.svc.List(c.Request.Context(), scope, filter)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCommissionListResponse(commissions))
}

func (h *Handler) GetCommission(c *gin.Context) {
	commissionID, ok := pathID(c)
	if !ok {
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	commission, err := h.svc.Get(c.Request.Context(), scope, commissionID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCommissionResponse(commission))
}

func (h *Handler) PayCommission(c *gin.Context) {
	commissionID, ok := pathID(c)
	if !ok {
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	commission, err := h.svc.MarkPaid(c.Request.Context(), scope, commissionID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCommissionResponse(commission))
}

func (h *Handler) CancelAndRecreate(c *gin.Context) {
	commissionID, ok := pathID(c)
	if !ok {
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	replacement, err := h.svc.CancelAndRecreate(c.Request.Context(), scope, commissionID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCommissionResponse(replacement))
}
