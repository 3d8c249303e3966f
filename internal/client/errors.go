package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when the backend rejects the session and a
	// refresh could not recover it. The local session has been cleared.
	ErrUnauthorized = errors.New("session expired, please sign in again")
	// ErrSessionMissing is returned when an authenticated call is made without a stored access token.
	ErrSessionMissing = errors.New("not signed in")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// messageKeys lists the body fields the backend uses for human-readable errors, in priority order.
var messageKeys = []string{"message", "detail", "error"}

// decodeAPIError extracts the backend's error message from body.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range messageKeys {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
				apiErr.Message = s
				return apiErr
			}
		}
	}

	apiErr.Message = http.StatusText(status)
	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}
	return apiErr
}

// Message returns the user-facing message carried by err, or fallback when
// err is not a backend error.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != http.StatusText(apiErr.Status) {
		return apiErr.Message
	}
	return fallback
}
