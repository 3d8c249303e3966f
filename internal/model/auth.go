package model

// StudentLoginRequest is the payload for student authentication against the backend.
type StudentLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	// RememberMe is a portal-side option and never sent upstream.
	RememberMe bool `json:"remember_me,omitempty"`
}

// TokenPair is returned by the backend on login and refresh.
// Refresh may be empty on refresh responses that do not rotate it.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RefreshRequest carries the refresh token for rotation and logout.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}
