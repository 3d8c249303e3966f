package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/session"
)

// Login authenticates with email and password and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	var pair model.TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/auth/student/login/", body, &pair, ""); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("login: backend returned no access token")
	}
	if err := c.store.SetTokens(ctx, session.Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}
	return &pair, nil
}

// Logout asks the backend to blacklist the refresh token, then clears local
// state whatever the backend answered. The remembered email is kept.
func (c *Client) Logout(ctx context.Context) error {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var callErr error
	if tokens.Refresh != "" {
		callErr = c.send(ctx, http.MethodPost, "/auth/logout/", model.RefreshRequest{Refresh: tokens.Refresh}, nil, tokens.Access)
		if callErr != nil {
			c.log.Warn().Err(callErr).Msg("Logout call failed, clearing local session anyway")
		}
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return callErr
}

// Refresh exchanges the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) (*model.TokenPair, error) {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return c.refresh(ctx, tokens.Refresh)
}

func (c *Client) refresh(ctx context.Context, refresh string) (*model.TokenPair, error) {
	if refresh == "" {
		return nil, session.ErrNoRefreshToken
	}
	var pair model.TokenPair
	if err := c.send(ctx, http.MethodPost, "/token/refresh/", model.RefreshRequest{Refresh: refresh}, &pair, ""); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("refresh: backend returned no access token")
	}
	// A response without a refresh token keeps the stored one.
	if err := c.store.SetTokens(ctx, session.Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}
	return &pair, nil
}

// VerifyToken asks the backend whether the stored access token is still valid.
func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if tokens.Access == "" {
		return false, nil
	}
	err = c.send(ctx, http.MethodPost, "/token/verify/", map[string]string{"token": tokens.Access}, nil, "")
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return false, nil
	}
	return false, err
}
