package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
	"github.com/stemsi/learning-portal/internal/validator"
)

// ProfileHandler serves the profile, its edit permission and field edits.
type ProfileHandler struct {
	profileService *service.ProfileService
	log            zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log.With().Str("component", "profile_handler").Logger(),
	}
}

type saveFieldRequest struct {
	Value string `json:"value"`
}

type permissionRequest struct {
	Reason string `json:"reason"`
}

// GetProfile godoc
// GET /api/v1/profile
// Returns the profile with the permission recomputed from the fresh fetch.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	v, err := h.profileService.GetProfile(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// StartEdit godoc
// POST /api/v1/profile/fields/:field/edit
// Puts phone, current_cgpa or skills into edit mode. Refused unless edits are approved.
func (h *ProfileHandler) StartEdit(c *gin.Context) {
	v, err := h.profileService.StartEdit(c.Request.Context(), c.Param("field"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// CancelEdit godoc
// DELETE /api/v1/profile/fields/:field/edit
func (h *ProfileHandler) CancelEdit(c *gin.Context) {
	v, err := h.profileService.CancelEdit(c.Param("field"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// SaveField godoc
// PUT /api/v1/profile/fields/:field
// Saves the field being edited. An unchanged value is not sent upstream.
func (h *ProfileHandler) SaveField(c *gin.Context) {
	var req saveFieldRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v, err := h.profileService.SaveField(c.Request.Context(), c.Param("field"), req.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// UpdateProfile godoc
// PUT /api/v1/profile
// Sends the full update form. The backend locks the profile again afterwards.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v, err := h.profileService.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// CreateProfile godoc
// POST /api/v1/profile
// Submits the profile-completion form shown after the first login.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req model.CreateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.profileService.CreateProfile(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, response.Message{Message: resp.Message})
}

// RequestPermission godoc
// POST /api/v1/profile/permission-requests
// Asks an administrator to unlock profile edits.
func (h *ProfileHandler) RequestPermission(c *gin.Context) {
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	msg, err := h.profileService.RequestPermission(c.Request.Context(), req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, response.Message{Message: msg})
}

// CompletionPrompt godoc
// GET /api/v1/profile/completion-prompt
// Tells the shell, once per fresh login, whether to open the profile form.
func (h *ProfileHandler) CompletionPrompt(c *gin.Context) {
	p, err := h.profileService.CompletionPrompt(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}
