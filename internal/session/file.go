package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileState is the on-disk layout. Key names follow the browser storage keys
// the backend's web client used, so a session file is easy to inspect.
type fileState struct {
	AccessToken     string `json:"accessToken,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	RememberedEmail string `json:"rememberedEmail,omitempty"`
}

// FileStore persists the session as a JSON file readable only by the owner.
// The fresh-login flag lives in memory: it is scoped to the running process.
type FileStore struct {
	path     string
	mu       sync.Mutex
	newLogin bool
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (fileState, error) {
	var st fileState
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, fmt.Errorf("decode session file: %w", err)
	}
	return st, nil
}

// save writes through a temp file and rename so a crash never leaves half a file.
func (s *FileStore) save(st fileState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) update(fn func(*fileState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.save(st)
}

func (s *FileStore) Tokens(_ context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: st.AccessToken, Refresh: st.RefreshToken}, nil
}

func (s *FileStore) SetTokens(_ context.Context, t Tokens) error {
	return s.update(func(st *fileState) {
		st.AccessToken = t.Access
		if t.Refresh != "" {
			st.RefreshToken = t.Refresh
		}
		st.IsAuthenticated = true
	})
}

func (s *FileStore) Clear(_ context.Context) error {
	return s.update(func(st *fileState) {
		st.AccessToken = ""
		st.RefreshToken = ""
		st.IsAuthenticated = false
	})
}

func (s *FileStore) IsAuthenticated(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return false, err
	}
	return st.IsAuthenticated && st.AccessToken != "", nil
}

func (s *FileStore) RememberedEmail(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return "", err
	}
	return st.RememberedEmail, nil
}

func (s *FileStore) SetRememberedEmail(_ context.Context, email string) error {
	return s.update(func(st *fileState) {
		st.RememberedEmail = email
	})
}

func (s *FileStore) MarkNewLogin(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newLogin = true
	return nil
}

func (s *FileStore) ConsumeNewLogin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.newLogin
	s.newLogin = false
	return v, nil
}
