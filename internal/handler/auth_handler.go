package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
	"github.com/stemsi/learning-portal/internal/validator"
)

// AuthHandler handles login, logout and session endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates against the backend and keeps the tokens in the portal session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	info, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			response.FailMessage(c, http.StatusUnauthorized, response.ErrInvalidCredentials, client.Message(err, ""))
			return
		}
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": info})
}

// Logout godoc
// POST /api/v1/auth/logout
// Blacklists the refresh token upstream and clears the local session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Session godoc
// GET /api/v1/auth/session
// Reports whether a student is signed in and the remembered email for the login form.
func (h *AuthHandler) Session(c *gin.Context) {
	info, err := h.authService.Session(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": info})
}
