package handler

import (
	"errors"
	"net/http"

	"mentorcrm_backend/internal/auth/service"
	"mentorcrm_backend/internal/auth/transport"
	"mentorcrm_backend/platform/httpkit"
	"mentorcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.SignIn)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.GetMe)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	accessToken, _, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAccountDisabled) {
			httpkit.Error(c, http.StatusForbidden, err.Error(), nil)
			return
		}
		httpkit.Error(c, http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), nil)
		return
	}

	httpkit.OK(c, transport.AuthResponse{AccessToken: accessToken})
}

func (h *Handler) GetMe(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	user, err := h.svc.GetMe(c.Request.Context(), id.UserID())
	if err != nil {
		httpkit.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}

	httpkit.OK(c, transport.ProfileResponse{
		ID:             user.ID.String(),
		Email:          user.Email,
		Name:           user.Name,
		OrganizationID: user.OrganizationID.String(),
		Role:           user.Role,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	})
}
