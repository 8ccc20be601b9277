package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/dispatchgo/dispatch"
)

// RunRecord is one persisted dispatch run: the inputs it started from,
// the outputs it settled and the functions that failed along the way.
// Inputs and Outputs must be JSON serializable.
type RunRecord struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Inputs    map[string]any `json:"inputs"`
	Outputs   map[string]any `json:"outputs"`
	Failed    []string       `json:"failed,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewRunRecord builds a record for a finished dispatch, extracting the
// failed function ids from the workflow trace.
func NewRunRecord(model string, inputs map[string]any, sol dispatch.Solution, wf *dispatch.Workflow) *RunRecord {
	rec := &RunRecord{
		ID:        uuid.NewString(),
		Model:     model,
		Inputs:    inputs,
		Outputs:   map[string]any(sol),
		CreatedAt: time.Now().UTC(),
	}
	if wf != nil {
		for _, n := range wf.Nodes() {
			if n.Kind == dispatch.KindFunction && n.Err != nil {
				rec.Failed = append(rec.Failed, n.ID)
			}
		}
	}
	return rec
}

// RunStore defines the interface for run persistence.
type RunStore interface {
	// Save stores a run record
	Save(ctx context.Context, run *RunRecord) error

	// Load retrieves a run by ID
	Load(ctx context.Context, runID string) (*RunRecord, error)

	// List returns all runs of a given model
	List(ctx context.Context, model string) ([]*RunRecord, error)

	// Delete removes a run
	Delete(ctx context.Context, runID string) error

	// Clear removes all runs of a model
	Clear(ctx context.Context, model string) error
}
