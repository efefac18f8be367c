package handler

import (
	"net/http"

	"mentorcrm_backend/internal/leads/service"
	"mentorcrm_backend/internal/leads/transport"
	"mentorcrm_backend/internal/tenant"
	"mentorcrm_backend/platform/httpkit"
	"mentorcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated lead intake endpoint used by
// embedded qualification forms.
type PublicHandler struct {
	svc       *service.Service
	directory *tenant.Directory
	val       *validator.Validator
}

func NewPublic(svc *service.Service, directory *tenant.Directory, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, directory: directory, val: val}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.SubmitLead)
}

func (h *PublicHandler) SubmitLead(c *gin.Context) {
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scope, err := h.directory.PublicScope(c.Request.Context(), req.OrganizationID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	lead, err := h.svc.SubmitLead(c.Request.Context(), scope, service.SubmitLeadParams{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Company:         req.Company,
		Position:        req.Position,
		Temperature:     req.Temperature,
		InterestLevel:   req.InterestLevel,
		InterestTag:     req.InterestTag,
		HasBudget:       req.HasBudget,
		IsDecisionMaker: req.IsDecisionMaker,
		MainPain:        req.MainPain,
		Source:          req.Source,
		ReferrerID:      req.ReferrerID,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}
