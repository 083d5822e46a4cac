package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/pkg/response"
)

// user agents are cut to this length before being stored with a refresh token
const maxUserAgent = 255

type authService interface {
	Login(ctx context.Context, req models.Credentials) (*models.TokenPair, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, caller models.Caller, refreshToken string) error
	ChangePassword(ctx context.Context, caller models.Caller, req models.PasswordChange) error
	Me(ctx context.Context, caller models.Caller) (*models.Profile, error)
}

// AuthHandler issues and revokes sessions. Login and refresh are public; the
// rest sit behind the JWT middleware.
type AuthHandler struct {
	service authService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Sign in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.Credentials true "Email and password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.Credentials
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.IP, req.UserAgent = clientInfo(c)
	h.issue(c, func(ctx context.Context) (*models.TokenPair, error) {
		return h.service.Login(ctx, req)
	})
}

// Refresh godoc
// @Summary Rotate tokens
// @Description The presented refresh token is revoked and a new pair issued.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	req.IP, req.UserAgent = clientInfo(c)
	h.issue(c, func(ctx context.Context) (*models.TokenPair, error) {
		return h.service.Refresh(ctx, req)
	})
}

func (h *AuthHandler) issue(c *gin.Context, fn func(context.Context) (*models.TokenPair, error)) {
	res, err := fn(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Sign out
// @Tags Authentication
// @Accept json
// @Param payload body models.RefreshRequest true "Refresh token to revoke"
// @Success 204
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &body, "refresh_token is required") {
		return
	}
	if err := h.service.Logout(c.Request.Context(), callerFromContext(c), body.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change own password
// @Description Every refresh token of the account is revoked on success.
// @Tags Authentication
// @Accept json
// @Param payload body models.PasswordChange true "Old and new password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.PasswordChange
	if !bindJSON(c, &req, "invalid password payload") {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), callerFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	info, err := h.service.Me(c.Request.Context(), callerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

func clientInfo(c *gin.Context) (ip, userAgent string) {
	userAgent = c.Request.UserAgent()
	if len(userAgent) > maxUserAgent {
		userAgent = userAgent[:maxUserAgent]
	}
	return c.ClientIP(), userAgent
}
