package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/arc-wizard/internal/fsutil"
)

// StateStore keeps the migrator's resumable state, one JSON file per network.
type StateStore struct {
	dir string
}

// NewStateStore stores state files under dir.
func NewStateStore(dir string) *StateStore {
	return &StateStore{dir: dir}
}

// Path returns the state file for network.
func (s *StateStore) Path(network string) string {
	name := strings.ToLower(strings.TrimSpace(network))
	if name == "" {
		name = "default"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == '.' {
			return '_'
		}
		return r
	}, name)
	return filepath.Join(s.dir, name+".json")
}

// Get returns the stored state for network, or nil when none exists.
func (s *StateStore) Get(network string) (json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(network))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("deploy: read state: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("deploy: state for %s is not valid JSON", network)
	}
	return json.RawMessage(data), nil
}

// Set replaces the stored state for network.
func (s *StateStore) Set(network string, state json.RawMessage) error {
	if !json.Valid(state) {
		return fmt.Errorf("deploy: refusing to store invalid JSON state for %s", network)
	}
	if err := fsutil.WriteFileAtomic(s.Path(network), state, 0o644); err != nil {
		return fmt.Errorf("deploy: write state: %w", err)
	}
	return nil
}

// Clean removes the stored state for network.
func (s *StateStore) Clean(network string) error {
	if err := os.Remove(s.Path(network)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deploy: clean state: %w", err)
	}
	return nil
}
