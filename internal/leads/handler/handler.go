package handler

import (
	"net/http"
	"strconv"

	"mentorcrm_backend/internal/leads/repository"
	"mentorcrm_backend/internal/leads/scoring"
	"mentorcrm_backend/internal/leads/service"
	"mentorcrm_backend/internal/leads/transport"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/httpkit"
	"mentorcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

type Handler struct {
	svc       *service.Service
	directory *tenant.Directory
	val       *validator.Validator
}

func New(svc *service.Service, directory *tenant.Directory, val *validator.Validator) *Handler {
	return &Handler{svc: svc, directory: directory, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/score", h.Score)
	rg.PATCH("/:id/status", h.TransitionStatus)
}

func (h *Handler) RegisterConfigRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetScoringConfig)
	rg.PUT("", h.UpdateScoringConfig)
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

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	params := repository.ListParams{
		Status:      c.Query("status"),
		Temperature: c.Query("temperature"),
		Unassigned:  c.Query("unassigned") == "true",
	}
	if raw := c.Query("closerId"); raw != "" {
		closerID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid closer id", nil)
			return
		}
		params.CloserID = &closerID
	}
	params.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	params.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, total, err := h.svc.List(c.Request.Context(), scope, params)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, transport.ToLeadResponse(lead))
	}
	httpkit.OK(c, transport.LeadListResponse{Items: items, Total: total})
}

func (h *Handler) Get(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), scope, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Score(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.ScoreLead(c.Request.Context(), scope, id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) TransitionStatus(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if req.Status == "reopen" {
		lead, err := h.svc.Reopen(c.Request.Context(), scope, id, scope.Actor())
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.OK(c, transport.ToLeadResponse(lead))
		return
	}

	lead, commission, err := h.svc.TransitionStatus(c.Request.Context(), scope, id, req.Status, req.SoldValue, scope.Actor())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToTransitionResponse(lead, commission))
}

func (h *Handler) GetScoringConfig(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	cfg, err := h.svc.GetScoringConfiguration(c.Request.Context(), scope)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToScoringConfigResponse(cfg))
}

func (h *Handler) UpdateScoringConfig(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var req transport.UpdateScoringConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rules := make([]scoring.Rule, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, rule.ToRule())
	}

	cfg, err := h.svc.UpdateScoringConfiguration(c.Request.Context(), scope, req.Name, rules)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToScoringConfigResponse(cfg))
}
