package handler

import (
	"net/http"

	"mentorcrm_backend/internal/assignment/service"
	"mentorcrm_backend/internal/assignment/transport"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/httpkit"
	"mentorcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

type Handler struct {
	svc       *service.Service
	directory *tenant.Directory
	val       *validator.Validator
}

func New(svc *service.Service, directory *tenant.Directory, val *validator.Validator) *Handler {
	return &Handler{svc: svc, directory: directory, val: val}
}

// RegisterLeadRoutes mounts the routing operations under /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/assign", h.AssignLead)
	rg.PUT("/:id/assign", h.ReassignLead)
}

// RegisterCloserRoutes mounts the closer roster CRUD under /closers.
func (h *Handler) RegisterCloserRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListClosers)
	rg.POST("", h.CreateCloser)
	rg.GET("/:id", h.GetCloser)
	rg.PATCH("/:id", h.UpdateCloser)
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

func (h *Handler) AssignLead(c *gin.Context) {
	leadID, ok := pathID(c)
	if !ok {
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	outcome, err := h.svc.AssignLeadByID(c.Request.Context(), scope, leadID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToAssignOutcomeResponse(outcome))
}

func (h *Handler) ReassignLead(c *gin.Context) {
	leadID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.ReassignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scope, ok := h.scope(c)
	if !ok {
		return
	}

	assignment, err := h.svc.Reassign(c.Request.Context(), scope, leadID, req.CloserID, scope.Actor())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToAssignmentResponse(assignment))
}

func (h *Handler) ListClosers(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	closers, err := h.svc.ListClosers(c.Request.Context(), scope)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCloserListResponse(closers))
}

func (h *Handler) GetCloser(c *gin.Context) {
	closerID, ok := pathID(c)
	if !ok {
		return
	}
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	closer, err := h.svc.GetCloser(c.Request.Context(), scope, closerID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCloserResponse(closer))
}

func (h *Handler) CreateCloser(c *gin.Context) {
	var req transport.CreateCloserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scope, ok := h.scope(c)
	if !ok {
		return
	}

	closer, err := h.svc.CreateCloser(c.Request.Context(), scope, service.CreateCloserParams{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		Specializations:  req.Specializations,
		CapacityMax:      req.CapacityMax,
		PerformanceScore: req.PerformanceScore,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transport.ToCloserResponse(closer))
}

func (h *Handler) UpdateCloser(c *gin.Context) {
	closerID, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateCloserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scope, ok := h.scope(c)
	if !ok {
		return
	}

	closer, err := h.svc.UpdateCloser(c.Request.Context(), scope, closerID, service.UpdateCloserParams{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		Specializations:  req.Specializations,
		CapacityMax:      req.CapacityMax,
		PerformanceScore: req.PerformanceScore,
		IsActive:         req.IsActive,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToCloserResponse(closer))
}
