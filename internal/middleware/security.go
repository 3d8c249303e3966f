package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecurityHeaders applies the standard hardening headers. A non-empty
// allowedHosts rejects any other Host header, which keeps DNS-rebound names
// away from a portal bound to loopback.
func SecurityHeaders(allowedHosts []string) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		AllowedHosts:       allowedHosts,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
	})
	sm.SetBadHostHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad Host", http.StatusBadRequest)
	}))
	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}
