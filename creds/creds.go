package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parley/domain"
)

// Credentials is the persisted auth session: bearer token plus the cached
// user profile. Presence of the token is the sole signal of "authenticated".
type Credentials struct {
	Token     string       `json:"token"`
	User      *domain.User `json:"user,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Store reads and writes credentials under a fixed file path. All methods
// re-read from disk so separate processes observe each other's logins.
type Store struct {
	pathFunc func() (string, error)
}

// NewStore creates a credential store using the default path
// (~/.parley/credentials.json)
func NewStore() *Store {
	return &Store{pathFunc: defaultPath}
}

// NewStoreAt creates a credential store rooted at an explicit file path.
// Used by tests and by the SSH server which isolates per-connection state.
func NewStoreAt(path string) *Store {
	return &Store{pathFunc: func() (string, error) { return path, nil }}
}

func defaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".parley", "credentials.json"), nil
}

// Load reads credentials from disk. A missing file is not an error; it
// returns empty credentials.
func (s *Store) Load() (*Credentials, error) {
	path, err := s.pathFunc()
	if err != nil {
		return &Credentials{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return &Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return &Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &c, nil
}

// Token returns the cached bearer token, or "" when not authenticated
func (s *Store) Token() string {
	c, err := s.Load()
	if err != nil {
		return ""
	}
	return c.Token
}

// HasToken reports whether a bearer token is cached
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// Save persists the token and user profile with an exclusive file lock
func (s *Store) Save(token string, user *domain.User) error {
	path, err := s.pathFunc()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer unlockFile(file)

	c := Credentials{
		Token:     token,
		User:      user,
		UpdatedAt: time.Now(),
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to beginning: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}

// Clear removes the cached token and user profile. Called on logout and by
// the API client when the backend answers 401.
func (s *Store) Clear() error {
	path, err := s.pathFunc()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}
