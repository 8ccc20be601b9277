// Package dispatch implements a dependency-resolving execution engine over
// capability graphs.
//
// A Dispatcher is a bipartite directed graph of data nodes and function
// nodes. Data nodes have OR semantics: any one registered producer
// suffices. Function nodes have AND semantics: every declared input must be
// resolved before the function can fire. Given a map of known values and a
// list of requested outputs, Dispatch runs a weighted best-first search
// over this graph, settling each data id at the cheapest available cost,
// invoking function callables lazily and exactly once, and recording the
// visited subgraph - the workflow - with the values that flowed.
//
// Competing producers of the same data id are ranked by cost, computed as
// the function's weight plus the maximum cost of its inputs; ties go to
// the function registered first. Eligibility can further be gated by an
// input-domain predicate over the raw supplied inputs, which is how
// mutually exclusive alternative sub-models are selected.
//
// Whole graphs nest: AddSubDispatcher embeds a child Dispatcher as a single
// function node of the parent, renaming ids across the namespace boundary
// and recursing into the child during resolution.
//
// Cyclic registrations are legal. The resolver settles every data id at
// most once per run, so a structural cycle is simply unreachable rather
// than infinite.
//
// Callable failures do not abort a run: the failing node is discarded, the
// failure is annotated in the workflow, and its outputs are left to other
// producers. A requested output that cannot be resolved is absent from the
// solution; callers decide whether that is acceptable.
package dispatch
