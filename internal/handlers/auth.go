package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	"github.com/yukikurage/stellar-tasks/internal/dto"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/middleware"
	"github.com/yukikurage/stellar-tasks/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username         string `json:"username" binding:"required,min=3,max=50"`
		Name             string `json:"name" binding:"max=255"`
		Password         string `json:"password" binding:"required"`
		AdminInviteToken string `json:"adminInviteToken"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), services.SignupInput{
		Username:         req.Username,
		Name:             req.Name,
		Password:         req.Password,
		AdminInviteToken: req.AdminInviteToken,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	userDTO := dto.ToUserDTO(*user)
	c.JSON(http.StatusCreated, userDTO)
}

// Login authenticates a user and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token: token,
		User:  dto.ToUserDTO(*user),
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	userDTO := dto.ToUserDTO(*user)
	c.JSON(http.StatusOK, userDTO)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameRequired):
		apierrors.BadRequest(c, "Username is required")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteToken):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		slog.Error("auth request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
		apierrors.InternalError(c, "Internal server error")
	}
}
