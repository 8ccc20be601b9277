package dispatch

// NodeKind classifies workflow nodes so inspection and drawing tools can
// tell data slots, function invocations and sentinels apart.
type NodeKind int

const (
	// KindData marks a settled data node
	KindData NodeKind = iota

	// KindFunction marks an invoked (or failed) function node
	KindFunction

	// KindStart marks the start sentinel
	KindStart

	// KindSink marks the sink sentinel
	KindSink
)

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindFunction:
		return "function"
	case KindStart:
		return "start"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Settlement sources recorded on workflow data nodes.
const (
	// ViaInput marks a value supplied by the caller
	ViaInput = "input"

	// ViaDefault marks a value taken from the data node's default
	ViaDefault = "default"
)

// WorkflowNode is one visited node of a resolution run.
type WorkflowNode struct {
	// ID is the graph node id
	ID string

	// Kind classifies the node
	Kind NodeKind

	// Value is the settled value for data nodes
	Value any

	// HasValue reports whether Value is meaningful
	HasValue bool

	// Cost is the settlement cost for data nodes
	Cost float64

	// Via records the settlement source of a data node: ViaInput,
	// ViaDefault or the producing function id.
	Via string

	// Err holds the captured failure of a function node whose callable
	// raised; nil for successful invocations.
	Err error

	// Nested holds the child run's workflow for sub-dispatcher nodes
	Nested *Workflow
}

// WorkflowEdge is one traversed edge, labeled with the value that flowed
// along it.
type WorkflowEdge struct {
	// From is the source node id
	From string

	// To is the destination node id
	To string

	// Value is the concrete value that flowed along the edge
	Value any

	// HasValue reports whether Value is meaningful
	HasValue bool
}

// Workflow is the recorded trace of one resolution run: the induced
// subgraph over exactly the visited nodes with the values that flowed.
// It is owned by the caller after Dispatch returns and never feeds back
// into the capability graph.
type Workflow struct {
	nodes map[string]*WorkflowNode
	order []string
	edges []WorkflowEdge
}

func newWorkflow() *Workflow {
	return &Workflow{nodes: make(map[string]*WorkflowNode)}
}

func (w *Workflow) node(id string, kind NodeKind) *WorkflowNode {
	if n, ok := w.nodes[id]; ok {
		return n
	}
	n := &WorkflowNode{ID: id, Kind: kind}
	w.nodes[id] = n
	w.order = append(w.order, id)
	return n
}

// recordSettlement captures a data node settling with the given value. The
// edge from its source (START for caller inputs and defaults, otherwise the
// producing function) carries the value.
func (w *Workflow) recordSettlement(dataID string, value any, cost float64, via string) {
	if dataID == START {
		w.node(START, KindStart)
		return
	}
	n := w.node(dataID, KindData)
	n.Value = value
	n.HasValue = true
	n.Cost = cost
	n.Via = via

	from := via
	if via == ViaInput || via == ViaDefault {
		w.node(START, KindStart)
		from = START
	}
	w.edges = append(w.edges, WorkflowEdge{From: from, To: dataID, Value: value, HasValue: true})
}

// recordInvocation captures a function firing, with the input values it
// consumed and, for sub-dispatcher nodes, the nested run's workflow.
func (w *Workflow) recordInvocation(fnID string, inputs []string, args []any, nested *Workflow) {
	n := w.node(fnID, KindFunction)
	n.Nested = nested

	argAt := 0
	for _, in := range inputs {
		if in == START {
			w.node(START, KindStart)
			w.edges = append(w.edges, WorkflowEdge{From: START, To: fnID})
			continue
		}
		var v any
		ok := false
		if argAt < len(args) {
			v = args[argAt]
			ok = true
		}
		argAt++
		w.edges = append(w.edges, WorkflowEdge{From: in, To: fnID, Value: v, HasValue: ok})
	}
}

// recordDiscard captures a value produced into SINK.
func (w *Workflow) recordDiscard(fnID string, value any) {
	w.node(SINK, KindSink)
	w.edges = append(w.edges, WorkflowEdge{From: fnID, To: SINK, Value: value, HasValue: true})
}

// recordFailure captures a callable failure. The node stays in the trace as
// a failed-node annotation; its outputs remain unsettled.
func (w *Workflow) recordFailure(fnID string, inputs []string, args []any, err error) {
	w.recordInvocation(fnID, inputs, args, nil)
	w.nodes[fnID].Err = err
}

// Len returns the number of visited nodes.
func (w *Workflow) Len() int {
	return len(w.nodes)
}

// Node returns the visited node with the given id.
func (w *Workflow) Node(id string) (*WorkflowNode, bool) {
	n, ok := w.nodes[id]
	return n, ok
}

// Nodes returns the visited nodes in visit order.
func (w *Workflow) Nodes() []*WorkflowNode {
	out := make([]*WorkflowNode, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.nodes[id])
	}
	return out
}

// Edges returns the traversed edges in traversal order.
func (w *Workflow) Edges() []WorkflowEdge {
	return append([]WorkflowEdge(nil), w.edges...)
}

// Invocations returns the ids of the functions that fired, in firing order.
// Failed invocations are included; gated ones never appear.
func (w *Workflow) Invocations() []string {
	var out []string
	for _, id := range w.order {
		if w.nodes[id].Kind == KindFunction {
			out = append(out, id)
		}
	}
	return out
}
