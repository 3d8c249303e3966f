package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(h gin.HandlerFunc, header string) (*httptest.ResponseRecorder, Response) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	r.ServeHTTP(w, req)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestSuccessEnvelope(t *testing.T) {
	w, body := serve(func(c *gin.Context) { Success(c, http.StatusOK, map[string]int{"n": 1}) }, "req-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body.Error)
	assert.Equal(t, "req-1", body.Metadata.RequestID)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, body.Metadata.Timestamp)
}

func TestFailWithFields(t *testing.T) {
	w, body := serve(func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"reason": "too short"})
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrValidation, body.Error.Code)
	assert.Equal(t, GetMessage(ErrValidation), body.Error.Message)
	assert.Equal(t, "too short", body.Error.Fields["reason"])
	assert.NotEmpty(t, body.Metadata.RequestID, "generated when the client sends none")
}

func TestFailMessage(t *testing.T) {
	_, body := serve(func(c *gin.Context) {
		FailMessage(c, http.StatusBadRequest, ErrRequestFailed, "You already have a pending request")
	}, "")
	require.NotNil(t, body.Error)
	assert.Equal(t, "You already have a pending request", body.Error.Message)

	_, body = serve(func(c *gin.Context) { FailMessage(c, http.StatusBadGateway, ErrBackend, "") }, "")
	require.NotNil(t, body.Error)
	assert.Equal(t, GetMessage(ErrBackend), body.Error.Message)
}

func TestAbortFailStopsChain(t *testing.T) {
	r := gin.New()
	reached := false
	r.GET("/", func(c *gin.Context) { AbortFail(c, http.StatusUnauthorized, ErrSessionRequired) }, func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)
}

func TestUnknownCodeMessage(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred.", GetMessage("SOMETHING_ELSE"))
}
