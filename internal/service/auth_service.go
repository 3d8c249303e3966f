package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/session"
)

// SessionInfo describes the local session without exposing tokens.
type SessionInfo struct {
	Authenticated   bool       `json:"authenticated"`
	RememberedEmail string     `json:"remembered_email,omitempty"`
	ExpiresAt       *time.Time `json:"access_expires_at,omitempty"`
}

// AuthService handles login, logout and session inspection.
type AuthService struct {
	api   *client.Client
	store session.Store
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(api *client.Client, store session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		api:   api,
		store: store,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// Login authenticates against the backend. With RememberMe the email is kept
// for the next login form; without it any remembered email is forgotten.
func (s *AuthService) Login(ctx context.Context, req model.StudentLoginRequest) (*SessionInfo, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := s.api.Login(ctx, email, req.Password); err != nil {
		return nil, err
	}

	remembered := ""
	if req.RememberMe {
		remembered = email
	}
	if err := s.store.SetRememberedEmail(ctx, remembered); err != nil {
		return nil, fmt.Errorf("store remembered email: %w", err)
	}
	if err := s.store.MarkNewLogin(ctx); err != nil {
		return nil, fmt.Errorf("mark new login: %w", err)
	}

	s.log.Info().Bool("remember_me", req.RememberMe).Msg("Student logged in")
	return s.Session(ctx)
}

// Logout blacklists the refresh token and clears the local session.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		// Local state is gone either way; the backend call is best effort.
		s.log.Warn().Err(err).Msg("Backend logout failed")
	}
	s.log.Info().Msg("Student logged out")
	return nil
}

// Session reports the current local session.
func (s *AuthService) Session(ctx context.Context) (*SessionInfo, error) {
	ok, err := s.store.IsAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	email, err := s.store.RememberedEmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("read remembered email: %w", err)
	}

	info := &SessionInfo{Authenticated: ok, RememberedEmail: email}
	if ok {
		tokens, err := s.store.Tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tokens: %w", err)
		}
		if exp, found := client.TokenExpiry(tokens.Access); found {
			info.ExpiresAt = &exp
		}
	}
	return info, nil
}
