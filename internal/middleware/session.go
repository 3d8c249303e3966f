package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/session"
)

// RequireSession rejects requests while no student is signed in to the portal.
// The tokens themselves never leave the session store.
func RequireSession(store session.Store, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "session_middleware").Logger()
	return func(c *gin.Context) {
		ok, err := store.IsAuthenticated(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to read session")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRequired)
			return
		}
		c.Next()
	}
}
