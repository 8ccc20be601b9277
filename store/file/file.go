// Package file provides a RunStore keeping one JSON document per run.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smallnest/dispatchgo/store"
)

// FileRunStore implements store.RunStore on a directory of JSON files,
// one per run, named <id>.json.
type FileRunStore struct {
	dir string
}

// NewFileRunStore creates the directory if needed and returns a store
// over it.
func NewFileRunStore(dir string) (*FileRunStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create store directory: %w", err)
	}
	return &FileRunStore{dir: dir}, nil
}

func (s *FileRunStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save stores a run record
func (s *FileRunStore) Save(_ context.Context, run *store.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record must have an id")
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(s.path(run.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// Load retrieves a run by ID
func (s *FileRunStore) Load(_ context.Context, runID string) (*store.RunRecord, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var run store.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns all runs of a given model, oldest first.
func (s *FileRunStore) List(ctx context.Context, model string) ([]*store.RunRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}
	var runs []*store.RunRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		run, err := s.Load(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// a concurrently deleted or foreign file is not fatal
			continue
		}
		if run.Model == model {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

// Delete removes a run
func (s *FileRunStore) Delete(_ context.Context, runID string) error {
	if err := os.Remove(s.path(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

// Clear removes all runs of a model
func (s *FileRunStore) Clear(ctx context.Context, model string) error {
	runs, err := s.List(ctx, model)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if err := s.Delete(ctx, run.ID); err != nil {
			return err
		}
	}
	return nil
}
