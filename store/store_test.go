package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/dispatch"
	"github.com/smallnest/dispatchgo/store"
)

func TestNewRunRecord(t *testing.T) {
	t.Parallel()

	d := dispatch.New("demo", "")
	_, err := d.AddData(dispatch.DataOptions{ID: "a"})
	require.NoError(t, err)
	_, err = d.AddData(dispatch.DataOptions{ID: "b"})
	require.NoError(t, err)
	_, err = d.AddData(dispatch.DataOptions{ID: "c"})
	require.NoError(t, err)
	_, err = d.AddFunction(dispatch.FunctionOptions{
		ID: "double", Inputs: []string{"a"}, Outputs: []string{"b"},
		Callable: func(_ context.Context, args []any) ([]any, error) {
			return []any{args[0].(float64) * 2}, nil
		},
	})
	require.NoError(t, err)
	_, err = d.AddFunction(dispatch.FunctionOptions{
		ID: "broken", Inputs: []string{"a"}, Outputs: []string{"c"},
		Callable: func(context.Context, []any) ([]any, error) {
			return nil, errors.New("boom")
		},
	})
	require.NoError(t, err)

	inputs := map[string]any{"a": 3.0}
	sol, wf, err := d.Dispatch(context.Background(), inputs, nil)
	require.NoError(t, err)

	rec := store.NewRunRecord("demo", inputs, sol, wf)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "demo", rec.Model)
	assert.Equal(t, 6.0, rec.Outputs["b"])
	assert.Equal(t, []string{"broken"}, rec.Failed)
	assert.False(t, rec.CreatedAt.IsZero())
}
