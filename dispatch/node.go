package dispatch

import (
	"context"
)

const (
	// START is the sentinel data id that is always settled at cost 0. Every
	// function node with no declared inputs implicitly consumes it, and
	// every data node with a default value is implicitly reachable from it.
	START = "START"

	// SINK is the sentinel data id that accepts a value and discards it. A
	// function output mapped to SINK is never settled, and a sub-dispatcher
	// input renamed to SINK is available to the adapter's domain predicate
	// without being wired into the child graph.
	SINK = "SINK"
)

// Callable is the invocation interface of a function node. Arguments are
// matched positionally to the node's declared inputs and return values to
// its declared outputs.
type Callable func(ctx context.Context, args []any) ([]any, error)

// DomainPredicate gates the eligibility of a function node for one run. It
// is evaluated against the raw inputs supplied to Dispatch, not against the
// resolved graph state, and must be pure: the map is shared and read-only.
type DomainPredicate func(inputs map[string]any) bool

// DataNode is a named value slot in the capability graph.
type DataNode struct {
	// ID is the unique identifier of the node within its graph
	ID string

	// Description describes the value held by the node
	Description string

	// Default is the fallback value used when no stronger source resolves
	// the node. A nil Default means the node has no default.
	Default any

	// WaitInputs defers the default: it is used only after the run drains
	// without any producer settling the node, so a function result always
	// wins and a failing producer falls back to it.
	WaitInputs bool

	// producers and consumers hold function ids in registration order
	producers []string
	consumers []string
}

// FunctionNode is a registered computation with fixed required inputs
// (AND semantics) and produced outputs.
type FunctionNode struct {
	// ID is the unique identifier of the node within its graph
	ID string

	// Description describes the computation
	Description string

	// Inputs lists the required input data ids. All of them must settle
	// before the node becomes a candidate producer.
	Inputs []string

	// Outputs lists the data ids resolved atomically by one invocation,
	// matched positionally to the callable's return values.
	Outputs []string

	// Weight is the resolution-cost penalty of this alternative. Lower
	// weight wins among competing producers of the same output.
	Weight float64

	// InputDomain optionally gates eligibility for the current run
	InputDomain DomainPredicate

	// Callable computes the outputs from the inputs
	Callable Callable

	// index is the registration order, the final deterministic tie-break
	index int

	// sub is non-nil when the node embeds a nested dispatcher
	sub *subBinding
}

// IsSubDispatcher reports whether the node embeds a nested dispatcher.
func (n *FunctionNode) IsSubDispatcher() bool {
	return n.sub != nil
}
