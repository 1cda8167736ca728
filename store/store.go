// Package store persists the watermark of record between batch runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"msgproc/watermark"
)

// State is the persisted watermark record.
type State struct {
	Watermark uint32            `json:"watermark"`
	Policy    *watermark.Policy `json:"policy,omitempty"`
	LastRun   string            `json:"last_run,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ErrPolicyMismatch is returned when a stored watermark was produced under a
// different policy than the one a run is configured with.
var ErrPolicyMismatch = errors.New("watermark policy mismatch")

// CheckPolicy reports whether st may be continued under p. A state with no
// recorded policy accepts any.
func (st State) CheckPolicy(p watermark.Policy) error {
	if st.Policy == nil || *st.Policy == p {
		return nil
	}
	return fmt.Errorf("%w: stored %s, configured %s", ErrPolicyMismatch, *st.Policy, p)
}

// WatermarkStore loads and saves the watermark of record.
type WatermarkStore interface {
	// Load returns the stored state, or a fresh state at watermark.Initial
	// when nothing has been stored yet.
	Load(ctx context.Context) (State, error)
	// Save replaces the stored state atomically.
	Save(ctx context.Context, st State) error
}

// FileStore keeps the state in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store rooted at path. Parent directories are created
// on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{Watermark: watermark.Initial}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return st, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so a crash never leaves a torn record.
func (s *FileStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".watermark-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
