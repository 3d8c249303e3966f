package config

import (
	"fmt"
)

// SessionKeyStruct builds the storage keys used by the session stores.
// The Redis store namespaces every key with a prefix so several portals can
// share one Redis database.
type SessionKeyStruct struct{}

func NewSessionKeyStruct() *SessionKeyStruct {
	return &SessionKeyStruct{}
}

// AccessToken returns the key for the bearer access token.
func (r *SessionKeyStruct) AccessToken(prefix string) string {
	return fmt.Sprintf("%s:accessToken", prefix)
}

// RefreshToken returns the key for the refresh token.
func (r *SessionKeyStruct) RefreshToken(prefix string) string {
	return fmt.Sprintf("%s:refreshToken", prefix)
}

// IsAuthenticated returns the key for the authenticated flag.
func (r *SessionKeyStruct) IsAuthenticated(prefix string) string {
	return fmt.Sprintf("%s:isAuthenticated", prefix)
}

// RememberedEmail returns the key for the remembered login email.
func (r *SessionKeyStruct) RememberedEmail(prefix string) string {
	return fmt.Sprintf("%s:rememberedEmail", prefix)
}

// NewLogin returns the key for the one-shot "fresh login" flag.
func (r *SessionKeyStruct) NewLogin(prefix string) string {
	return fmt.Sprintf("%s:session:newLogin", prefix)
}

var SessionKey = NewSessionKeyStruct()
