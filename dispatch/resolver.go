package dispatch

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/smallnest/dispatchgo/log"
)

// Solution maps every data id settled during one run to its value. It is a
// superset of the resolvable requested outputs; requested ids that were
// structurally unreachable or discarded by a domain predicate are simply
// absent, which is not an error.
type Solution map[string]any

// Get returns the value for id and whether it was settled.
func (s Solution) Get(id string) (any, bool) {
	v, ok := s[id]
	return v, ok
}

// settlement is the final value, cost and provenance of a data id.
type settlement struct {
	value any
	cost  float64
	via   string
}

// queueItem is one pending settlement candidate. Duplicate entries for the
// same data id are expected; stale ones are skipped on pop.
type queueItem struct {
	cost   float64
	rank   int // producer registration index, -1 for seeded sources
	seq    int // push order, the last tie-break
	dataID string
	fn     *FunctionNode // nil for seeds
	value  any           // seed value
	via    string        // seed provenance
}

// runQueue is a min-heap ordered by cost, then producer registration order,
// then push order. The ordering makes repeated runs byte-for-byte
// deterministic.
type runQueue []*queueItem

func (q runQueue) Len() int { return len(q) }

func (q runQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].rank != q[j].rank {
		return q[i].rank < q[j].rank
	}
	return q[i].seq < q[j].seq
}

func (q runQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *runQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *runQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// fnRun is the per-run mutable state of one function node.
type fnRun struct {
	node      *FunctionNode
	pending   int     // unsettled inputs left
	maxCost   float64 // highest settled input cost so far
	discarded bool    // gated by domain predicate or failed
	invoked   bool
	results   map[string]any // output id -> value, after invocation
	nested    *Workflow      // child trace for sub-dispatcher nodes
}

// resolution bundles all mutable state of one Dispatch call. Nothing here
// outlives the call, which is what makes concurrent dispatches against the
// same graph safe.
type resolution struct {
	d         *Dispatcher
	ctx       context.Context
	raw       map[string]any
	settled   map[string]settlement
	runs      map[string]*fnRun
	queue     runQueue
	seq       int
	wf        *Workflow
	deferred  []string // wait-input default ids, injected when the queue drains
	requested map[string]bool
	remaining int
}

// Dispatch resolves the requested outputs from the supplied inputs.
//
// The search settles data ids in ascending cost order, invoking function
// callables lazily and exactly once, the moment one of their outputs is
// about to settle. It stops as soon as every requested output is settled;
// with no requested outputs it computes everything reachable. Callable
// failures never unwind past Dispatch: they are recorded in the workflow
// and the affected outputs are left to other producers.
//
// The context is passed through to callables but the resolver itself has no
// cancellation concept; a long-running callable blocks the whole dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, inputs map[string]any, outputs []string) (Solution, *Workflow, error) {
	if d == nil || d.data == nil {
		return nil, nil, ErrNotInitialized
	}

	r := &resolution{
		d:         d,
		ctx:       ctx,
		raw:       inputs,
		settled:   make(map[string]settlement),
		runs:      make(map[string]*fnRun, len(d.functions)),
		wf:        newWorkflow(),
		requested: make(map[string]bool, len(outputs)),
	}
	for _, id := range d.fnOrder {
		node := d.functions[id]
		r.runs[id] = &fnRun{node: node, pending: len(node.Inputs)}
	}
	for _, id := range outputs {
		if !r.requested[id] {
			r.requested[id] = true
			r.remaining++
		}
	}

	r.seed()
	r.run()

	solution := make(Solution, len(r.settled))
	for id, s := range r.settled {
		if id == START {
			continue
		}
		solution[id] = s.value
	}
	return solution, r.wf, nil
}

// seed queues START, the caller inputs and the immediate defaults at cost 0
// and defers wait-input defaults until the queue drains.
func (r *resolution) seed() {
	r.push(&queueItem{rank: -1, dataID: START, via: "start"})

	keys := make([]string, 0, len(r.raw))
	for k := range r.raw {
		if k == START || k == SINK {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.push(&queueItem{rank: -1, dataID: k, value: r.raw[k], via: ViaInput})
	}

	for _, id := range r.d.dataOrder {
		node := r.d.data[id]
		if node.Default == nil {
			continue
		}
		if _, supplied := r.raw[id]; supplied {
			continue
		}
		if node.WaitInputs {
			r.deferred = append(r.deferred, id)
			continue
		}
		r.push(&queueItem{rank: -1, dataID: id, value: node.Default, via: ViaDefault})
	}
}

// run is the settlement loop: a decrease-key-free Dijkstra over the
// bipartite graph, with OR semantics on data nodes and AND semantics on
// function nodes.
func (r *resolution) run() {
	for {
		if len(r.requested) > 0 && r.remaining == 0 {
			return
		}
		if r.queue.Len() == 0 {
			if !r.flushDeferred() {
				return
			}
			continue
		}

		it := heap.Pop(&r.queue).(*queueItem)
		if _, done := r.settled[it.dataID]; done {
			continue
		}

		if it.fn == nil {
			r.settle(it.dataID, it.value, it.cost, it.via)
			continue
		}

		run := r.runs[it.fn.ID]
		if run.discarded {
			continue
		}
		if !run.invoked {
			r.invoke(run)
			if run.discarded {
				continue
			}
		}
		v, ok := run.results[it.dataID]
		if !ok {
			// sub-dispatcher run left this output unresolved
			continue
		}
		r.settle(it.dataID, v, it.cost, it.fn.ID)
	}
}

// flushDeferred injects wait-input defaults for ids that are still
// unsettled once the queue is exhausted. Returns whether anything was
// injected.
func (r *resolution) flushDeferred() bool {
	if len(r.deferred) == 0 {
		return false
	}
	pushed := false
	for _, id := range r.deferred {
		if _, done := r.settled[id]; done {
			continue
		}
		r.push(&queueItem{rank: -1, dataID: id, value: r.d.data[id].Default, via: ViaDefault})
		pushed = true
	}
	r.deferred = nil
	return pushed
}

func (r *resolution) push(it *queueItem) {
	it.seq = r.seq
	r.seq++
	heap.Push(&r.queue, it)
}

// settle fixes the value and cost of a data id for the rest of the run and
// relaxes every consuming function.
func (r *resolution) settle(id string, value any, cost float64, via string) {
	r.settled[id] = settlement{value: value, cost: cost, via: via}
	r.wf.recordSettlement(id, value, cost, via)
	if r.requested[id] {
		r.remaining--
	}
	log.Debug("dispatch %s: settled %s via %s at cost %g", r.d.name, id, via, cost)

	node, known := r.d.data[id]
	if !known {
		// caller-supplied id with no graph node; it can still feed domain
		// predicates through the raw inputs map
		return
	}

	for _, fnID := range node.consumers {
		run := r.runs[fnID]
		if run.discarded {
			continue
		}
		run.pending--
		if cost > run.maxCost {
			run.maxCost = cost
		}
		if run.pending > 0 {
			continue
		}
		if run.node.InputDomain != nil && !run.node.InputDomain(r.raw) {
			// gated branches leave no trace in the workflow
			run.discarded = true
			log.Debug("dispatch %s: %s discarded by input domain", r.d.name, fnID)
			continue
		}
		// the function cannot start before its slowest prerequisite; the
		// weight then penalizes this whole alternative uniformly
		candidate := run.node.Weight + run.maxCost
		for _, out := range run.node.Outputs {
			if out == SINK {
				continue
			}
			if _, done := r.settled[out]; done {
				continue
			}
			r.push(&queueItem{cost: candidate, rank: run.node.index, dataID: out, fn: run.node})
		}
	}
}

// invoke fires a function exactly once, the moment one of its outputs is
// about to settle. Failures discard the node and leave its outputs to
// other producers.
func (r *resolution) invoke(run *fnRun) {
	run.invoked = true

	args := make([]any, 0, len(run.node.Inputs))
	for _, in := range run.node.Inputs {
		if in == START {
			continue
		}
		args = append(args, r.settled[in].value)
	}

	values, nested, err := r.call(run.node, args)
	if err == nil && len(values) != len(run.node.Outputs) {
		err = fmt.Errorf("returned %d values for %d outputs", len(values), len(run.node.Outputs))
	}
	if err != nil {
		run.discarded = true
		cerr := &CallableError{FunctionID: run.node.ID, Err: err}
		r.wf.recordFailure(run.node.ID, run.node.Inputs, args, cerr)
		log.Warn("dispatch %s: %v", r.d.name, cerr)
		return
	}

	run.nested = nested
	run.results = make(map[string]any, len(values))
	r.wf.recordInvocation(run.node.ID, run.node.Inputs, args, nested)
	for i, out := range run.node.Outputs {
		if out == SINK {
			r.wf.recordDiscard(run.node.ID, values[i])
			continue
		}
		if _, skip := values[i].(notResolvedValue); skip {
			continue
		}
		run.results[out] = values[i]
	}
	log.Debug("dispatch %s: invoked %s", r.d.name, run.node.ID)
}

// call runs the node's callable, recursing for sub-dispatcher nodes so the
// nested workflow is kept. Panics are captured as failures.
func (r *resolution) call(node *FunctionNode, args []any) (values []any, nested *Workflow, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if node.sub != nil {
		return node.sub.dispatch(r.ctx, args)
	}
	values, err = node.Callable(r.ctx, args)
	return values, nil, err
}
