package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/middleware"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
	ws "github.com/stemsi/learning-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins; same-host
// origins are always accepted and everything else must be listed.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(r, allowedOrigins)
		},
	}
}

// WSHandler streams live attempts.
type WSHandler struct {
	assessmentService *service.AssessmentService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(assessmentService *service.AssessmentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		assessmentService: assessmentService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Pushes the attempt view on connect, a tick every second and a view after
// every change. Accepts the same actions as the REST actions endpoint.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	at, err := h.assessmentService.Attempt(id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("attempt_id", id.String()).Logger()
	wsLog.Info().Msg("Attempt stream connected")

	// gorilla connections allow one writer at a time.
	var wmu sync.Mutex
	write := func(v interface{}) error {
		wmu.Lock()
		defer wmu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	views, unsubscribe := at.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go pumpViews(at, views, done, write, wsLog)

	for {
		var msg ws.ActionRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			_ = write(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		if err := applyAction(c.Request.Context(), at, msg); err != nil {
			_ = write(ws.ErrorResponse{Event: ws.EventError, Error: actionErrorMessage(at, err)})
		}
	}
}

// pumpViews writes the current view, then every published change, until done.
func pumpViews(at *assessment.Attempt, views <-chan assessment.View, done <-chan struct{}, write func(interface{}) error, log zerolog.Logger) {
	prev := at.View()
	if err := write(ws.BuildEvent(nil, prev)); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case v := <-views:
			ev := ws.BuildEvent(&prev, v)
			prev = v
			if err := write(ev); err != nil {
				log.Debug().Err(err).Msg("Stream write failed")
				return
			}
		}
	}
}

func actionErrorMessage(at *assessment.Attempt, err error) string {
	if msg := at.SubmitError(); msg != "" && at.State() == assessment.StateConfirmingSubmit {
		return msg
	}
	switch {
	case errors.Is(err, errMissingArgument), errors.Is(err, errUnknownAction):
		return err.Error()
	}
	return response.GetMessage(actionErrCode(err))
}

func actionErrCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, assessment.ErrSubmitInFlight):
		return response.ErrSubmitInFlight
	case errors.Is(err, assessment.ErrAlreadySubmitted):
		return response.ErrAlreadySubmitted
	case errors.Is(err, assessment.ErrInvalidTransition):
		return response.ErrInvalidTransition
	case errors.Is(err, assessment.ErrQuestionIndex):
		return response.ErrValidation
	default:
		return response.ErrInternal
	}
}
