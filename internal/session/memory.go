package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu            sync.Mutex
	tokens        Tokens
	authenticated bool
	email         string
	newLogin      bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens(_ context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *MemoryStore) SetTokens(_ context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = t.Access
	if t.Refresh != "" {
		s.tokens.Refresh = t.Refresh
	}
	s.authenticated = true
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.authenticated = false
	return nil
}

func (s *MemoryStore) IsAuthenticated(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated && s.tokens.Access != "", nil
}

func (s *MemoryStore) RememberedEmail(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email, nil
}

func (s *MemoryStore) SetRememberedEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = email
	return nil
}

func (s *MemoryStore) MarkNewLogin(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newLogin = true
	return nil
}

func (s *MemoryStore) ConsumeNewLogin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.newLogin
	s.newLogin = false
	return v, nil
}
