package dispatch

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Dispatcher is a capability graph: a bipartite registry of data and
// function nodes plus the resolution engine that turns available data and
// requested outputs into computed values.
//
// Registration is not safe for concurrent use. Once built, the graph is
// read-only during resolution, so concurrent Dispatch calls against the
// same Dispatcher are safe and independent.
type Dispatcher struct {
	name        string
	description string

	data      map[string]*DataNode
	functions map[string]*FunctionNode

	// registration order, used for deterministic tie-breaks and listings
	dataOrder []string
	fnOrder   []string
}

// New creates an empty dispatcher with the given name and description.
func New(name, description string) *Dispatcher {
	d := &Dispatcher{
		name:        name,
		description: description,
		data:        make(map[string]*DataNode),
		functions:   make(map[string]*FunctionNode),
	}
	d.data[START] = &DataNode{ID: START, Description: "start sentinel"}
	return d
}

// Name returns the dispatcher name.
func (d *Dispatcher) Name() string { return d.name }

// Description returns the dispatcher description.
func (d *Dispatcher) Description() string { return d.description }

// DataOptions configures a data node registration.
type DataOptions struct {
	// ID is the unique data id. Required.
	ID string

	// Description describes the value
	Description string

	// Default is the optional fallback value; nil means no default
	Default any

	// WaitInputs defers the default behind any producing function
	WaitInputs bool
}

// AddData registers a data node and returns its id.
func (d *Dispatcher) AddData(opts DataOptions) (string, error) {
	if opts.ID == "" {
		return "", fmt.Errorf("%w: data id is required", ErrInvalidRegistration)
	}
	if opts.ID == SINK {
		return "", fmt.Errorf("%w: %s is reserved", ErrInvalidRegistration, SINK)
	}
	if d.hasNode(opts.ID) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNodeID, opts.ID)
	}

	d.data[opts.ID] = &DataNode{
		ID:          opts.ID,
		Description: opts.Description,
		Default:     opts.Default,
		WaitInputs:  opts.WaitInputs,
	}
	d.dataOrder = append(d.dataOrder, opts.ID)
	return opts.ID, nil
}

// FunctionOptions configures a function node registration.
type FunctionOptions struct {
	// ID is the unique function id. When empty, an id is derived from the
	// callable's name and disambiguated if reused.
	ID string

	// Description describes the computation
	Description string

	// Inputs lists required input data ids. An empty list makes the
	// function implicitly reachable from START.
	Inputs []string

	// Outputs lists produced data ids. SINK entries are computed and
	// discarded.
	Outputs []string

	// Weight is the non-negative resolution-cost tie-breaker
	Weight float64

	// InputDomain optionally gates eligibility per run
	InputDomain DomainPredicate

	// Callable computes the outputs. Required.
	Callable Callable
}

// AddFunction registers a function node and returns its id.
//
// All referenced data ids must already be registered: wiring against an
// unknown id fails with ErrUnknownNode. A function whose inputs can never
// settle is legal; it is simply never eligible.
func (d *Dispatcher) AddFunction(opts FunctionOptions) (string, error) {
	if opts.Callable == nil {
		return "", fmt.Errorf("%w: callable is required", ErrInvalidRegistration)
	}
	if len(opts.Outputs) == 0 {
		return "", fmt.Errorf("%w: at least one output is required", ErrInvalidRegistration)
	}
	if opts.Weight < 0 {
		return "", fmt.Errorf("%w: weight must be non-negative", ErrInvalidRegistration)
	}

	id := opts.ID
	if id == "" {
		id = d.uniqueFunctionID(callableName(opts.Callable))
	} else if d.hasNode(id) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNodeID, id)
	}

	inputs := append([]string(nil), opts.Inputs...)
	if len(inputs) == 0 {
		inputs = []string{START}
	}
	for _, in := range inputs {
		if _, ok := d.data[in]; !ok {
			return "", fmt.Errorf("%w: input %s", ErrUnknownNode, in)
		}
	}

	outputs := append([]string(nil), opts.Outputs...)
	seen := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		if out == SINK {
			continue
		}
		if _, ok := d.data[out]; !ok {
			return "", fmt.Errorf("%w: output %s", ErrUnknownNode, out)
		}
		if seen[out] {
			return "", fmt.Errorf("%w: output %s listed twice", ErrInvalidRegistration, out)
		}
		seen[out] = true
	}

	node := &FunctionNode{
		ID:          id,
		Description: opts.Description,
		Inputs:      inputs,
		Outputs:     outputs,
		Weight:      opts.Weight,
		InputDomain: opts.InputDomain,
		Callable:    opts.Callable,
		index:       len(d.fnOrder),
	}
	d.wire(node)
	return id, nil
}

// wire inserts a validated function node and connects its edges.
func (d *Dispatcher) wire(node *FunctionNode) {
	d.functions[node.ID] = node
	d.fnOrder = append(d.fnOrder, node.ID)

	for _, in := range node.Inputs {
		d.data[in].consumers = append(d.data[in].consumers, node.ID)
	}
	for _, out := range node.Outputs {
		if out == SINK {
			continue
		}
		d.data[out].producers = append(d.data[out].producers, node.ID)
	}
}

func (d *Dispatcher) hasNode(id string) bool {
	if _, ok := d.data[id]; ok {
		return true
	}
	_, ok := d.functions[id]
	return ok
}

// uniqueFunctionID disambiguates a derived id with a numeric suffix.
func (d *Dispatcher) uniqueFunctionID(base string) string {
	if base == "" {
		base = "function"
	}
	if !d.hasNode(base) {
		return base
	}
	for i := 2; ; i++ {
		id := fmt.Sprintf("%s_%d", base, i)
		if !d.hasNode(id) {
			return id
		}
	}
}

// callableName derives a function id from the callable's symbol name.
// Closures and method values fall back to their innermost name component.
func callableName(fn Callable) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	return name
}

// DataIDs returns the registered data ids in registration order, without
// the sentinels.
func (d *Dispatcher) DataIDs() []string {
	return append([]string(nil), d.dataOrder...)
}

// FunctionIDs returns the registered function ids in registration order.
func (d *Dispatcher) FunctionIDs() []string {
	return append([]string(nil), d.fnOrder...)
}

// DataNode returns the data node with the given id.
func (d *Dispatcher) DataNode(id string) (*DataNode, bool) {
	n, ok := d.data[id]
	return n, ok
}

// FunctionNode returns the function node with the given id.
func (d *Dispatcher) FunctionNode(id string) (*FunctionNode, bool) {
	n, ok := d.functions[id]
	return n, ok
}

// Producers returns the ids of the functions producing the given data id,
// in registration order. These are the data node's OR-alternatives.
func (d *Dispatcher) Producers(dataID string) []string {
	n, ok := d.data[dataID]
	if !ok {
		return nil
	}
	return append([]string(nil), n.producers...)
}

// Consumers returns the ids of the functions consuming the given data id,
// in registration order.
func (d *Dispatcher) Consumers(dataID string) []string {
	n, ok := d.data[dataID]
	if !ok {
		return nil
	}
	return append([]string(nil), n.consumers...)
}

// Predecessors returns the input data ids of the given function id.
func (d *Dispatcher) Predecessors(fnID string) []string {
	n, ok := d.functions[fnID]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Inputs...)
}

// Successors returns the output data ids of the given function id.
func (d *Dispatcher) Successors(fnID string) []string {
	n, ok := d.functions[fnID]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Outputs...)
}
