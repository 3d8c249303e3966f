// Package session holds the signed-in student's credentials between requests.
//
// Every consumer depends on the Store interface; the concrete backend is picked
// once at startup (JSON file, Redis, or memory for tests and one-shot CLIs).
package session

import (
	"context"
	"errors"
)

// ErrNoRefreshToken is returned when a refresh is attempted without a stored refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Tokens is the access/refresh pair issued by the backend.
type Tokens struct {
	Access  string `json:"accessToken"`
	Refresh string `json:"refreshToken"`
}

// Store is the single access point for persisted client state.
type Store interface {
	// Tokens returns the stored pair. Missing tokens are returned as empty strings.
	Tokens(ctx context.Context) (Tokens, error)
	// SetTokens stores the pair and marks the session authenticated. An empty
	// Refresh keeps the previously stored refresh token.
	SetTokens(ctx context.Context, t Tokens) error
	// Clear removes tokens and the authenticated flag. The remembered email survives.
	Clear(ctx context.Context) error
	// IsAuthenticated reports whether an access token is stored and flagged.
	IsAuthenticated(ctx context.Context) (bool, error)

	RememberedEmail(ctx context.Context) (string, error)
	// SetRememberedEmail stores the email; an empty email forgets it.
	SetRememberedEmail(ctx context.Context, email string) error

	// MarkNewLogin sets the session-scoped fresh-login flag.
	MarkNewLogin(ctx context.Context) error
	// ConsumeNewLogin reports and clears the fresh-login flag.
	ConsumeNewLogin(ctx context.Context) (bool, error)
}
