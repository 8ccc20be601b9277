// Package memory provides an in-process RunStore backed by a map.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/dispatchgo/store"
)

// MemoryRunStore implements store.RunStore in process memory. It is
// safe for concurrent use and loses everything when the process exits.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*store.RunRecord
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*store.RunRecord)}
}

// Save stores a run record
func (s *MemoryRunStore) Save(_ context.Context, run *store.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record must have an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

// Load retrieves a run by ID
func (s *MemoryRunStore) Load(_ context.Context, runID string) (*store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	cp := *run
	return &cp, nil
}

// List returns all runs of a given model, oldest first.
func (s *MemoryRunStore) List(_ context.Context, model string) ([]*store.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var runs []*store.RunRecord
	for _, run := range s.runs {
		if run.Model != model {
			continue
		}
		cp := *run
		runs = append(runs, &cp)
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
func (s *MemoryRunStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Clear removes all runs of a model
func (s *MemoryRunStore) Clear(_ context.Context, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, run := range s.runs {
		if run.Model == model {
			delete(s.runs, id)
		}
	}
	return nil
}
