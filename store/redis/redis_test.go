package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/store"
)

func TestRedisRunStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rs := NewRedisRunStore(RedisOptions{Addr: mr.Addr()})
	var _ store.RunStore = rs
	ctx := context.Background()

	run := &store.RunRecord{
		ID:        "run-1",
		Model:     "physical",
		Inputs:    map[string]any{"cycle_type": "NEDC"},
		Outputs:   map[string]any{"co2_emission_value": 121.3},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, rs.Save(ctx, run))

	loaded, err := rs.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "physical", loaded.Model)
	assert.Equal(t, 121.3, loaded.Outputs["co2_emission_value"])
	assert.Equal(t, "NEDC", loaded.Inputs["cycle_type"])

	list, err := rs.List(ctx, "physical")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-1", list[0].ID)

	require.NoError(t, rs.Delete(ctx, "run-1"))
	_, err = rs.Load(ctx, "run-1")
	assert.Error(t, err)

	list, err = rs.List(ctx, "physical")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Clear wipes all runs of the model and the index
	require.NoError(t, rs.Save(ctx, &store.RunRecord{ID: "run-2", Model: "physical"}))
	require.NoError(t, rs.Save(ctx, &store.RunRecord{ID: "run-3", Model: "physical"}))

	list, err = rs.List(ctx, "physical")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, rs.Clear(ctx, "physical"))
	list, err = rs.List(ctx, "physical")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisRunStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rs := NewRedisRunStore(RedisOptions{Addr: mr.Addr(), TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, &store.RunRecord{ID: "run-1", Model: "physical"}))

	mr.FastForward(2 * time.Minute)

	_, err = rs.Load(ctx, "run-1")
	assert.Error(t, err, "expired runs are gone")
}
