package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/profile"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
)

// respondError maps a service error onto the portal envelope.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		fieldErr *service.FieldError
		reqErr   *service.RequestError
		valErr   *profile.ValidationError
		apiErr   *client.APIError
		netErr   net.Error
	)

	switch {
	case errors.Is(err, client.ErrSessionMissing):
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionRequired)
	case errors.Is(err, client.ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionExpired)

	case errors.As(err, &fieldErr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fieldErr.Fields)
	case errors.As(err, &valErr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{valErr.Field: valErr.Message})
	case errors.As(err, &reqErr):
		status := http.StatusBadGateway
		if errors.As(reqErr.Err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			status = apiErr.Status
		}
		response.FailMessage(c, status, response.ErrRequestFailed, reqErr.Message)

	case errors.Is(err, profile.ErrNotEditable):
		response.Fail(c, http.StatusForbidden, response.ErrProfileLocked)
	case errors.Is(err, profile.ErrNotEditing):
		response.Fail(c, http.StatusConflict, response.ErrNotEditing)
	case errors.Is(err, service.ErrUnknownField):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownField)

	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, assessment.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, assessment.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, assessment.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, errUnknownAction):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"action": err.Error()})
	case errors.Is(err, assessment.ErrQuestionIndex):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"index": err.Error()})

	case errors.As(err, &apiErr):
		switch {
		case apiErr.Status == http.StatusNotFound:
			response.FailMessage(c, http.StatusNotFound, response.ErrNotFound, apiErr.Message)
		case apiErr.Status < http.StatusInternalServerError:
			response.FailMessage(c, apiErr.Status, response.ErrBackend, apiErr.Message)
		default:
			log.Warn().Err(err).Int("status", apiErr.Status).Msg("Backend error")
			response.Fail(c, http.StatusBadGateway, response.ErrBackend)
		}
	case errors.As(err, &netErr):
		log.Warn().Err(err).Msg("Backend unreachable")
		response.Fail(c, http.StatusBadGateway, response.ErrBackendUnavailable)

	default:
		log.Error().Err(err).Msg("Unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
