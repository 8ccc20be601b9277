package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/dispatchgo/dispatch"
)

func newChild(t *testing.T, factor float64) *dispatch.Dispatcher {
	t.Helper()
	child := dispatch.New("child", "")
	mustData(t, child, "in", "out")
	mustFunction(t, child, dispatch.FunctionOptions{
		ID: "compute", Inputs: []string{"in"}, Outputs: []string{"out"}, Callable: scale(factor),
	})
	return child
}

func TestAddSubDispatcher(t *testing.T) {
	t.Parallel()

	parent := dispatch.New("parent", "")
	mustData(t, parent, "p_in", "p_out")

	id, err := parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:   newChild(t, 2),
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"out": "p_out"},
	})
	require.NoError(t, err)
	assert.Equal(t, "child", id, "id derived from the child dispatcher name")

	node, ok := parent.FunctionNode(id)
	require.True(t, ok)
	assert.True(t, node.IsSubDispatcher())

	sol, wf, err := parent.Dispatch(context.Background(), map[string]any{"p_in": 3.0}, []string{"p_out"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, sol["p_out"])
	assert.NotContains(t, sol, "in", "child ids stay in the child namespace")
	assert.NotContains(t, sol, "out")

	adapter, ok := wf.Node(id)
	require.True(t, ok)
	require.NotNil(t, adapter.Nested, "the child run's trace is attached")
	_, ok = adapter.Nested.Node("compute")
	assert.True(t, ok)
}

func TestAddSubDispatcherErrors(t *testing.T) {
	t.Parallel()

	parent := dispatch.New("parent", "")
	mustData(t, parent, "p_in", "p_out")
	child := newChild(t, 2)

	_, err := parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"out": "p_out"},
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration, "nil child")

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:  child,
		Inputs: map[string]string{"p_in": "in"},
	})
	assert.ErrorIs(t, err, dispatch.ErrInvalidRegistration, "no outputs")

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:   child,
		Inputs:  map[string]string{"missing": "in"},
		Outputs: map[string]string{"out": "p_out"},
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode, "unknown parent input")

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:   child,
		Inputs:  map[string]string{"p_in": "missing"},
		Outputs: map[string]string{"out": "p_out"},
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode, "unknown child input")

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:   child,
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"missing": "p_out"},
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode, "unknown child output")

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		Child:   child,
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"out": "missing"},
	})
	assert.ErrorIs(t, err, dispatch.ErrUnknownNode, "unknown parent output")
}

func TestSubDispatcherDomainSelectsAlternative(t *testing.T) {
	t.Parallel()

	// two incompatible nested models compete for the same parent output;
	// the discriminant is SINK-mapped so it gates eligibility without
	// being wired into either child
	parent := dispatch.New("cycle", "theoretical times, velocities and gears")
	mustData(t, parent, "cycle_type", "time", "velocity")

	isType := func(want string) dispatch.DomainPredicate {
		return func(inputs map[string]any) bool {
			return inputs["cycle_type"] == want
		}
	}

	_, err := parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:          "nedc",
		Child:       newChild(t, 2),
		Inputs:      map[string]string{"cycle_type": dispatch.SINK, "time": "in"},
		Outputs:     map[string]string{"out": "velocity"},
		InputDomain: isType("NEDC"),
	})
	require.NoError(t, err)

	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:          "wltp",
		Child:       newChild(t, 3),
		Inputs:      map[string]string{"cycle_type": dispatch.SINK, "time": "in"},
		Outputs:     map[string]string{"out": "velocity"},
		InputDomain: isType("WLTP"),
	})
	require.NoError(t, err)

	inputs := map[string]any{"cycle_type": "WLTP", "time": 10.0}
	sol, wf, err := parent.Dispatch(context.Background(), inputs, []string{"velocity"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, sol["velocity"])

	_, ok := wf.Node("nedc")
	assert.False(t, ok, "the rejected branch is never expanded")
	_, ok = wf.Node("wltp")
	assert.True(t, ok)
}

func TestSubDispatcherLosesToCheaperParentProducer(t *testing.T) {
	t.Parallel()

	// renaming a child output back onto a contested parent id goes through
	// normal cost relaxation; nesting order gives no precedence
	parent := dispatch.New("parent", "")
	mustData(t, parent, "p_in", "p_out")

	_, err := parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:      "nested",
		Child:   newChild(t, 100),
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"out": "p_out"},
		Weight:  5,
	})
	require.NoError(t, err)
	mustFunction(t, parent, dispatch.FunctionOptions{
		ID: "local", Inputs: []string{"p_in"}, Outputs: []string{"p_out"}, Callable: scale(2),
	})

	sol, wf, err := parent.Dispatch(context.Background(), map[string]any{"p_in": 1.0}, []string{"p_out"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, sol["p_out"])
	assert.Equal(t, []string{"local"}, wf.Invocations())
}

func TestSubDispatcherUnresolvedOutputLeftToOthers(t *testing.T) {
	t.Parallel()

	// the child graph has the output slot but no way to compute it; the
	// parent falls back to its own producer instead of failing
	child := dispatch.New("hollow", "")
	mustData(t, child, "in", "out")

	parent := dispatch.New("parent", "")
	mustData(t, parent, "p_in", "p_out")
	_, err := parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:      "nested",
		Child:   child,
		Inputs:  map[string]string{"p_in": "in"},
		Outputs: map[string]string{"out": "p_out"},
	})
	require.NoError(t, err)
	mustFunction(t, parent, dispatch.FunctionOptions{
		ID: "local", Inputs: []string{"p_in"}, Outputs: []string{"p_out"}, Weight: 3, Callable: scale(2),
	})

	sol, _, err := parent.Dispatch(context.Background(), map[string]any{"p_in": 1.0}, []string{"p_out"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, sol["p_out"])
}

func TestSubDispatcherNesting(t *testing.T) {
	t.Parallel()

	// grandchild inside child inside parent; values cross two rename
	// boundaries and come back
	grandchild := newChild(t, 2)

	child := dispatch.New("mid", "")
	mustData(t, child, "mid_in", "mid_out")
	_, err := child.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:      "inner",
		Child:   grandchild,
		Inputs:  map[string]string{"mid_in": "in"},
		Outputs: map[string]string{"out": "mid_out"},
	})
	require.NoError(t, err)

	parent := dispatch.New("top", "")
	mustData(t, parent, "p_in", "p_out")
	_, err = parent.AddSubDispatcher(dispatch.SubDispatcherOptions{
		ID:      "outer",
		Child:   child,
		Inputs:  map[string]string{"p_in": "mid_in"},
		Outputs: map[string]string{"mid_out": "p_out"},
	})
	require.NoError(t, err)

	sol, wf, err := parent.Dispatch(context.Background(), map[string]any{"p_in": 7.0}, []string{"p_out"})
	require.NoError(t, err)
	assert.Equal(t, 14.0, sol["p_out"])

	outer, ok := wf.Node("outer")
	require.True(t, ok)
	require.NotNil(t, outer.Nested)
	inner, ok := outer.Nested.Node("inner")
	require.True(t, ok)
	assert.NotNil(t, inner.Nested)
}
