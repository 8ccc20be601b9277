package dispatch

import (
	"context"
	"fmt"
	"sort"
)

// notResolved marks a sub-dispatcher output slot whose child run did not
// settle the corresponding child id. The resolver skips settlement for it.
type notResolvedValue struct{}

var notResolved = notResolvedValue{}

// subBinding attaches a nested dispatcher as a single function node of the
// parent graph. The nested graph is built once at model-definition time and
// stays immutable; each run only creates a transient nested resolution.
type subBinding struct {
	child *Dispatcher

	// inputs maps parent data ids to child data ids. A SINK value means
	// the parent value feeds the domain predicate only.
	inputs map[string]string

	// outputs maps child data ids back to parent data ids
	outputs map[string]string

	// parentInputs and childOutputs are the sorted key sets, fixed at
	// registration so invocation order is deterministic
	parentInputs []string
	childOutputs []string
}

// SubDispatcherOptions configures the embedding of a nested dispatcher.
type SubDispatcherOptions struct {
	// ID is the unique function id of the adapter. When empty it is
	// derived from the child dispatcher's name.
	ID string

	// Description describes the nested model
	Description string

	// Child is the nested dispatcher. Required. Embedding a dispatcher
	// inside itself is a caller error and is not detected.
	Child *Dispatcher

	// Inputs maps parent data ids to child data ids, or to SINK when the
	// parent value should reach the domain predicate without being wired
	// into the child graph.
	Inputs map[string]string

	// Outputs maps child data ids back to parent data ids
	Outputs map[string]string

	// Weight is the non-negative resolution-cost tie-breaker
	Weight float64

	// InputDomain is evaluated against the parent's raw supplied inputs
	// before the child graph is considered at all. It selects between
	// mutually exclusive alternative sub-models.
	InputDomain DomainPredicate
}

// AddSubDispatcher embeds a nested dispatcher as one function node of the
// parent graph and returns the adapter's id.
//
// The adapter requires every parent id in Inputs (AND semantics, SINK-mapped
// ones included) and produces every parent id in Outputs. During dispatch it
// recursively resolves the child graph with the renamed settled values and
// renames the child's results back.
func (d *Dispatcher) AddSubDispatcher(opts SubDispatcherOptions) (string, error) {
	if opts.Child == nil {
		return "", fmt.Errorf("%w: child dispatcher is required", ErrInvalidRegistration)
	}
	if len(opts.Outputs) == 0 {
		return "", fmt.Errorf("%w: at least one output mapping is required", ErrInvalidRegistration)
	}
	if opts.Weight < 0 {
		return "", fmt.Errorf("%w: weight must be non-negative", ErrInvalidRegistration)
	}

	id := opts.ID
	if id == "" {
		base := opts.Child.Name()
		if base == "" {
			base = "sub_dispatcher"
		}
		id = d.uniqueFunctionID(base)
	} else if d.hasNode(id) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNodeID, id)
	}

	binding := &subBinding{
		child:   opts.Child,
		inputs:  make(map[string]string, len(opts.Inputs)),
		outputs: make(map[string]string, len(opts.Outputs)),
	}

	for parentID, childID := range opts.Inputs {
		if _, ok := d.data[parentID]; !ok {
			return "", fmt.Errorf("%w: parent input %s", ErrUnknownNode, parentID)
		}
		if childID != SINK {
			if _, ok := opts.Child.data[childID]; !ok {
				return "", fmt.Errorf("%w: child input %s", ErrUnknownNode, childID)
			}
		}
		binding.inputs[parentID] = childID
		binding.parentInputs = append(binding.parentInputs, parentID)
	}
	sort.Strings(binding.parentInputs)

	parentOutputs := make(map[string]bool, len(opts.Outputs))
	for childID, parentID := range opts.Outputs {
		if _, ok := opts.Child.data[childID]; !ok {
			return "", fmt.Errorf("%w: child output %s", ErrUnknownNode, childID)
		}
		if _, ok := d.data[parentID]; !ok {
			return "", fmt.Errorf("%w: parent output %s", ErrUnknownNode, parentID)
		}
		if parentOutputs[parentID] {
			return "", fmt.Errorf("%w: parent output %s mapped twice", ErrInvalidRegistration, parentID)
		}
		parentOutputs[parentID] = true
		binding.outputs[childID] = parentID
		binding.childOutputs = append(binding.childOutputs, childID)
	}
	sort.Strings(binding.childOutputs)

	outputs := make([]string, 0, len(binding.childOutputs))
	for _, childID := range binding.childOutputs {
		outputs = append(outputs, binding.outputs[childID])
	}

	node := &FunctionNode{
		ID:          id,
		Description: opts.Description,
		Inputs:      binding.parentInputs,
		Outputs:     outputs,
		Weight:      opts.Weight,
		InputDomain: opts.InputDomain,
		Callable:    binding.callable(),
		index:       len(d.fnOrder),
		sub:         binding,
	}
	if len(node.Inputs) == 0 {
		node.Inputs = []string{START}
	}
	d.wire(node)
	return id, nil
}

// dispatch runs the child graph with the renamed parent values and renames
// the child solution back to parent output slots. Unresolved child outputs
// become notResolved markers so the parent settles them from other
// producers, or not at all.
func (b *subBinding) dispatch(ctx context.Context, args []any) ([]any, *Workflow, error) {
	childInputs := make(map[string]any, len(args))
	for i, parentID := range b.parentInputs {
		childID := b.inputs[parentID]
		if childID == SINK {
			continue
		}
		childInputs[childID] = args[i]
	}

	solution, workflow, err := b.child.Dispatch(ctx, childInputs, b.childOutputs)
	if err != nil {
		return nil, nil, err
	}

	values := make([]any, 0, len(b.childOutputs))
	for _, childID := range b.childOutputs {
		v, ok := solution[childID]
		if !ok {
			values = append(values, notResolved)
			continue
		}
		values = append(values, v)
	}
	return values, workflow, nil
}

// callable adapts the binding to the plain function invocation interface.
// The resolver bypasses it to keep the nested workflow, but through it a
// sub-dispatcher node behaves exactly like any other function node.
func (b *subBinding) callable() Callable {
	return func(ctx context.Context, args []any) ([]any, error) {
		values, _, err := b.dispatch(ctx, args)
		return values, err
	}
}
