// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package expansion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Store persists expansion sets per taxonomy. Persistence is best effort:
// callers treat every error as "start collapsed".
type Store interface {
	Load(ctx context.Context, taxonomy string) ([]int64, error)
	Save(ctx context.Context, taxonomy string, ids []int64) error
}

// StateVersion is the schema version written to state files.
const StateVersion = 1

// fileState is the on-disk layout:
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "category": [3, 12]
//	  }
//	}
type fileState struct {
	Version  int                `json:"version"`
	Expanded map[string][]int64 `json:"expanded"`
}

// FileStore keeps expansion sets in a single JSON file shared by all
// taxonomies of one site.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store writing to path. The file and its directory
// are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the saved set for taxonomy. A missing file is not an error.
func (s *FileStore) Load(_ context.Context, taxonomy string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return nil, err
	}
	return state.Expanded[taxonomy], nil
}

// Save replaces the saved set for taxonomy and leaves other taxonomies alone.
func (s *FileStore) Save(_ context.Context, taxonomy string, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every later save.
		slog.Warn("expansion state unreadable, starting fresh", "path", s.path, "error", err)
		state = &fileState{Version: StateVersion, Expanded: map[string][]int64{}}
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	if len(sorted) == 0 {
		delete(state.Expanded, taxonomy)
	} else {
		state.Expanded[taxonomy] = sorted
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal expansion state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write expansion state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace expansion state: %w", err)
	}
	return nil
}

func (s *FileStore) read() (*fileState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileState{Version: StateVersion, Expanded: map[string][]int64{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read expansion state: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return &fileState{Version: StateVersion, Expanded: map[string][]int64{}}, nil
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode expansion state: %w", err)
	}
	if state.Version != StateVersion {
		return nil, fmt.Errorf("expansion state version %d not supported", state.Version)
	}
	if state.Expanded == nil {
		state.Expanded = map[string][]int64{}
	}
	return &state, nil
}

// Recall loads the saved set for taxonomy into t. Failures are logged and
// leave t untouched.
func Recall(ctx context.Context, s Store, taxonomy string, t *Tracker) {
	if s == nil {
		return
	}
	ids, err := s.Load(ctx, taxonomy)
	if err != nil {
		slog.Warn("expansion state not restored", "taxonomy", taxonomy, "error", err)
		return
	}
	t.Restore(ids)
}

// Persist saves the current set of t. Failures are logged only.
func Persist(ctx context.Context, s Store, taxonomy string, t *Tracker) {
	if s == nil {
		return
	}
	if err := s.Save(ctx, taxonomy, t.Snapshot()); err != nil {
		slog.Warn("expansion state not saved", "taxonomy", taxonomy, "error", err)
	}
}
