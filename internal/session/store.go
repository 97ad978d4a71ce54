// Package session owns the authentication token pair and current-user
// profile: persistence under the data dir, the anonymous/authenticated
// lifecycle, and the in-process auth-changed broadcast.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/areactl/pkg/api"
)

// State is the persisted session material. CurrentUser may be nil even
// when a token is present; a crash or failed profile fetch between the
// token write and the profile write leaves exactly that shape, and
// consumers must tolerate it.
type State struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	CurrentUser  *api.User `json:"current_user,omitempty"`
}

// Store is a JSON-file-backed session store. It writes session.json under
// the data dir with owner-only permissions.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a Store rooted at the given data directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path() string {
	return filepath.Join(s.root, "session.json")
}

// Load reads the persisted session. A missing file yields (nil, nil).
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &st, nil
}

// Save writes the session state atomically (temp file then rename).
func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp session: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp session: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
