package handler

import (
	"net/http"

	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/internal/organization/transport"
	"mentorcrm_backend/platform/httpkit"
	"mentorcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	directory *tenant.Directory
	val       *validator.Validator
}

func New(directory *tenant.Directory, val *validator.Validator) *Handler {
	return &Handler{directory: directory, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.GetOrganization)
	rg.PUT("/commission-amount", h.SetCommissionAmount)
	rg.PUT("/temperature-thresholds", h.SetThresholds)
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

func (h *Handler) GetOrganization(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	org, err := h.directory.Organization(c.Request.Context(), scope)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToOrganizationResponse(org))
}

func (h *Handler) SetCommissionAmount(c *gin.Context) {
	var req transport.SetCommissionAmountRequest
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

	if err := h.directory.SetCommissionAmount(c.Request.Context(), scope, req.Amount); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SetThresholds(c *gin.Context) {
	var req transport.SetThresholdsRequest
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

	if err := h.directory.SetTemperatureThresholds(c.Request.Context(), scope, req.WarmThreshold, req.HotThreshold); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
