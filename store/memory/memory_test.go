package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/store"
)

func newRun(id, model string, at time.Time) *store.RunRecord {
	return &store.RunRecord{
		ID:        id,
		Model:     model,
		Inputs:    map[string]any{"cycle_type": "NEDC"},
		Outputs:   map[string]any{"co2_emission_value": 121.3},
		CreatedAt: at,
	}
}

func TestMemoryRunStoreCRUD(t *testing.T) {
	t.Parallel()

	ms := NewMemoryRunStore()
	var _ store.RunStore = ms
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, ms.Save(ctx, newRun("run-1", "physical", now)))

	loaded, err := ms.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "physical", loaded.Model)
	assert.Equal(t, 121.3, loaded.Outputs["co2_emission_value"])

	_, err = ms.Load(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, ms.Delete(ctx, "run-1"))
	_, err = ms.Load(ctx, "run-1")
	assert.Error(t, err)
}

func TestMemoryRunStoreRejectsEmptyID(t *testing.T) {
	t.Parallel()

	ms := NewMemoryRunStore()
	assert.Error(t, ms.Save(context.Background(), &store.RunRecord{Model: "physical"}))
}

func TestMemoryRunStoreListAndClear(t *testing.T) {
	t.Parallel()

	ms := NewMemoryRunStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ms.Save(ctx, newRun("run-2", "physical", now.Add(time.Second))))
	require.NoError(t, ms.Save(ctx, newRun("run-1", "physical", now)))
	require.NoError(t, ms.Save(ctx, newRun("run-3", "other", now)))

	runs, err := ms.List(ctx, "physical")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID, "oldest first")
	assert.Equal(t, "run-2", runs[1].ID)

	require.NoError(t, ms.Clear(ctx, "physical"))
	runs, err = ms.List(ctx, "physical")
	require.NoError(t, err)
	assert.Empty(t, runs)

	runs, err = ms.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, runs, 1, "other models are untouched")
}

func TestMemoryRunStoreCopiesRecords(t *testing.T) {
	t.Parallel()

	ms := NewMemoryRunStore()
	ctx := context.Background()

	run := newRun("run-1", "physical", time.Now().UTC())
	require.NoError(t, ms.Save(ctx, run))
	run.Model = "mutated"

	loaded, err := ms.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "physical", loaded.Model)
}
