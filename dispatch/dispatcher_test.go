package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/dispatch"
)

func double(_ context.Context, args []any) ([]any, error) {
	return []any{args[0].(float64) * 2}, nil
}

func TestAddData(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")

	id, err := d.AddData(dispatch.DataOptions{ID: "a", Description: "input value"})
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	node, ok := d.DataNode("a")
	require.True(t, ok)
	assert.Equal(t, "input value", node.Description)
	assert.Nil(t, node.Default)

	_, err = d.AddData(dispatch.DataOptions{ID: "b", Default: 100.0})
	require.NoError(t, err)
	node, ok = d.DataNode("b")
	require.True(t, ok)
	assert.Equal(t, 100.0, node.Default)

	assert.Equal(t, []string{"a", "b"}, d.DataIDs())
}

func TestAddDataErrors(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")
	_, err := d.AddData(dispatch.DataOptions{ID: "a"})
	require.NoError(t, err)

	_, err = d.AddData(dispatch.DataOptions{ID: "a"})
	assert.ErrorIs(t, err, dispatch.ErrDuplicateNodeID)

	_, err = d.AddData(dispatch.DataOptions{})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration)

	_, err = d.AddData(dispatch.DataOptions{ID: dispatch.SINK})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration)
}

func TestAddFunction(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")
	mustData(t, d, "a", "b")

	id, err := d.AddFunction(dispatch.FunctionOptions{
		ID:       "double_a",
		Inputs:   []string{"a"},
		Outputs:  []string{"b"},
		Callable: double,
	})
	require.NoError(t, err)
	assert.Equal(t, "double_a", id)

	assert.Equal(t, []string{"a"}, d.Predecessors("double_a"))
	assert.Equal(t, []string{"b"}, d.Successors("double_a"))
	assert.Equal(t, []string{"double_a"}, d.Producers("b"))
	assert.Equal(t, []string{"double_a"}, d.Consumers("a"))
}

func TestAddFunctionDerivedID(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")
	mustData(t, d, "a", "b", "c")

	id1, err := d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Outputs: []string{"b"}, Callable: double,
	})
	require.NoError(t, err)
	assert.Equal(t, "double", id1)

	// reusing the same callable disambiguates the derived id
	id2, err := d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Outputs: []string{"c"}, Callable: double,
	})
	require.NoError(t, err)
	assert.Equal(t, "double_2", id2)
}

func TestAddFunctionErrors(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")
	mustData(t, d, "a", "b")

	_, err := d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Outputs: []string{"b"},
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration, "nil callable")

	_, err = d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration, "no outputs")

	_, err = d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"missing"}, Outputs: []string{"b"}, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode)

	_, err = d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Outputs: []string{"missing"}, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode)

	_, err = d.AddFunction(dispatch.FunctionOptions{
		Inputs: []string{"a"}, Outputs: []string{"b"}, Weight: -1, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration)

	_, err = d.AddFunction(dispatch.FunctionOptions{
		ID: "f", Inputs: []string{"a"}, Outputs: []string{"b"}, Callable: double,
	})
	require.NoError(t, err)
	_, err = d.AddFunction(dispatch.FunctionOptions{
		ID: "f", Inputs: []string{"a"}, Outputs: []string{"b"}, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrDuplicateNodeID)

	_, err = d.AddFunction(dispatch.FunctionOptions{
		ID: "a", Inputs: []string{"a"}, Outputs: []string{"b"}, Callable: double,
	})
	assert.ErrorIs(t, err, dispatch.ErrDuplicateNodeID, "function id colliding with data id")
}

func TestFunctionWithoutInputsConsumesStart(t *testing.T) {
	t.Parallel()

	d := dispatch.New("test", "")
	mustData(t, d, "answer")

	_, err := d.AddFunction(dispatch.FunctionOptions{
		ID:       "answer_source",
		Outputs:  []string{"answer"},
		Callable: dispatch.Constant(42),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{dispatch.START}, d.Predecessors("answer_source"))

	sol, _, err := d.Dispatch(context.Background(), nil, []string{"answer"})
	require.NoError(t, err)
	assert.Equal(t, 42, sol["answer"])
}

func TestDispatchNotInitialized(t *testing.T) {
	t.Parallel()

	var d *dispatch.Dispatcher
	_, _, err := d.Dispatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, dispatch.ErrNotInitialized)

	_, _, err = (&dispatch.Dispatcher{}).Dispatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, dispatch.ErrNotInitialized)
}

// mustData registers plain data nodes, failing the test on error.
func mustData(t *testing.T, d *dispatch.Dispatcher, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := d.AddData(dispatch.DataOptions{ID: id})
		require.NoError(t, err)
	}
}
