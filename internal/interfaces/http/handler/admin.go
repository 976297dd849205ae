package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	registrationapp "github.com/maisgenetica/backend/internal/application/registration"
	"github.com/maisgenetica/backend/internal/domain/shared"
	"github.com/maisgenetica/backend/internal/infrastructure/auth"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
	"github.com/maisgenetica/backend/internal/interfaces/http/middleware"
)

// AdminAuthenticator issues and revokes administrator sessions
type AdminAuthenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// AdminRegistrationService is the application API used by AdminHandler
type AdminRegistrationService interface {
	List(ctx context.Context, filter registrationapp.ListFilter) (*shared.Paginated[registrationapp.AdminResponse], error)
	GetForAdmin(ctx context.Context, id uuid.UUID) (*registrationapp.AdminResponse, error)
	AttachmentURL(ctx context.Context, id uuid.UUID) (string, time.Time, error)
}

// AdminHandler serves the administrator login and the registration listing
type AdminHandler struct {
	BaseHandler
	auth     AdminAuthenticator
	services AdminRegistrationService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(authenticator AdminAuthenticator, services AdminRegistrationService) *AdminHandler {
	return &AdminHandler{auth: authenticator, services: services}
}

// LoginRequest holds administrator credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
}

// AttachmentURLResponse is a time-limited link to a proof document
type AttachmentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @ID           adminLogin
// @Summary      Administrator login
// @Description  Exchanges credentials for a bearer token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} dto.Response{data=auth.Token}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.Error(c, dto.ErrCodeInvalidCredentials, "Usuário ou senha inválidos")
		return
	case errors.Is(err, auth.ErrLoginDisabled):
		h.Error(c, dto.ErrCodeLoginDisabled, "Acesso administrativo não configurado")
		return
	case err != nil:
		h.HandleError(c, err)
		return
	}
	h.Success(c, token)
}

// Logout godoc
// @ID           adminLogout
// @Summary      Revoke the current token
// @Tags         admin
// @Success      204
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Error(c, dto.ErrCodeUnauthorized, "Autenticação necessária")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListRegistrations godoc
// @ID           listRegistrations
// @Summary      List registrations
// @Description  Returns a filtered page of registrations
// @Tags         admin
// @Produce      json
// @Param        city       query  string  false  "City"
// @Param        status     query  string  false  "Status" Enums(pending, receipt_ready, receipt_failed)
// @Param        search     query  string  false  "Name, CPF or protocol"
// @Param        page       query  int     false  "Page" minimum(1)
// @Param        page_size  query  int     false  "Page size" minimum(1) maximum(100)
// @Param        order_by   query  string  false  "Sort column"
// @Param        order_dir  query  string  false  "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]registrationapp.AdminResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/registrations [get]
func (h *AdminHandler) ListRegistrations(c *gin.Context) {
	var filter registrationapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.bindError(c, err)
		return
	}

	page, err := h.services.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetRegistration godoc
// @ID           getAdminRegistration
// @Summary      Full record of one registration
// @Tags         admin
// @Produce      json
// @Param        id  path  string  true  "Registration ID" format(uuid)
// @Success      200 {object} dto.Response{data=registrationapp.AdminResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/registrations/{id} [get]
func (h *AdminHandler) GetRegistration(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.services.GetForAdmin(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AttachmentURL godoc
// @ID           getRegistrationAttachmentURL
// @Summary      Link to the proof document
// @Description  Returns a short-lived link to the uploaded proof document
// @Tags         admin
// @Produce      json
// @Param        id  path  string  true  "Registration ID" format(uuid)
// @Success      200 {object} dto.Response{data=AttachmentURLResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/registrations/{id}/attachment [get]
func (h *AdminHandler) AttachmentURL(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	url, expiresAt, err := h.services.AttachmentURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AttachmentURLResponse{URL: url, ExpiresAt: expiresAt})
}
