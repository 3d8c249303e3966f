package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
	"github.com/stemsi/learning-portal/internal/validator"
	ws "github.com/stemsi/learning-portal/internal/websocket"
)

var (
	errMissingArgument = errors.New("missing action argument")
	errUnknownAction   = errors.New("unknown action")
)

// AssessmentHandler serves the assessment list and drives live attempts.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	log               zerolog.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService *service.AssessmentService, log zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		log:               log.With().Str("component", "assessment_handler").Logger(),
	}
}

// ListAssessments godoc
// GET /api/v1/assessments
// Returns pending, in-progress and completed assessments with summary metrics.
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	list, err := h.assessmentService.ListAssessments(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// GetAssessment godoc
// GET /api/v1/assessments/:id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	a, err := h.assessmentService.GetAssessment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// StartAttempt godoc
// POST /api/v1/assessments/:id/attempts
// Loads the assessment and starts its countdown. The returned attempt id is
// used by the action endpoints and the WebSocket stream.
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	at, err := h.assessmentService.StartAttempt(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attempt": at.View()})
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
func (h *AssessmentHandler) GetAttempt(c *gin.Context) {
	at, ok := h.attempt(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": at.View()})
}

// AttemptAction godoc
// POST /api/v1/attempts/:attempt_id/actions
// Applies one navigation, answer or dialog action and returns the new view.
func (h *AssessmentHandler) AttemptAction(c *gin.Context) {
	at, ok := h.attempt(c)
	if !ok {
		return
	}

	var req ws.ActionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := applyAction(c.Request.Context(), at, req); err != nil {
		h.respondActionError(c, at, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": at.View()})
}

// DiscardAttempt godoc
// DELETE /api/v1/attempts/:attempt_id
// Stops the clock and forgets the attempt, typically after the result was shown.
func (h *AssessmentHandler) DiscardAttempt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if err := h.assessmentService.DiscardAttempt(id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

func (h *AssessmentHandler) attempt(c *gin.Context) (*assessment.Attempt, bool) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}
	at, err := h.assessmentService.Attempt(id)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return at, true
}

func (h *AssessmentHandler) respondActionError(c *gin.Context, at *assessment.Attempt, err error) {
	switch {
	case errors.Is(err, errMissingArgument):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"action": err.Error()})
	case at.State() == assessment.StateConfirmingSubmit && at.SubmitError() != "":
		// The backend refused the submission; the dialog stays open for a retry.
		h.log.Warn().Err(err).Str("attempt_id", at.ID().String()).Msg("Submission failed")
		response.FailMessage(c, http.StatusBadGateway, response.ErrSubmitFailed, at.SubmitError())
	default:
		respondError(c, h.log, err)
	}
}

// applyAction runs one attempt command. It is shared by the REST endpoint and
// the WebSocket stream.
func applyAction(ctx context.Context, at *assessment.Attempt, req ws.ActionRequest) error {
	switch req.Action {
	case ws.ActionNext:
		return at.Next()
	case ws.ActionPrev:
		return at.Prev()
	case ws.ActionJump:
		if req.Index == nil {
			return errMissingArgument
		}
		return at.JumpTo(*req.Index)
	case ws.ActionAnswer:
		if req.Value == nil {
			return errMissingArgument
		}
		return at.SetAnswer(*req.Value)
	case ws.ActionOpenSubmit:
		return at.OpenSubmit()
	case ws.ActionCancelSubmit:
		return at.CancelSubmit()
	case ws.ActionConfirmSubmit:
		// A client hanging up must not abort a submission already on the wire.
		_, err := at.ConfirmSubmit(context.WithoutCancel(ctx))
		return err
	case ws.ActionRequestExit:
		return at.RequestExit()
	case ws.ActionCancelExit:
		return at.CancelExit()
	case ws.ActionConfirmExit:
		return at.ConfirmExit()
	default:
		return errUnknownAction
	}
}
