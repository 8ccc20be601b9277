// Dispatch Go - Dependency-Resolving Computation Graphs in Go
//
// Dispatch Go wires small functions into a shared capability graph and,
// given a set of known values and a set of requested outputs, figures out
// which registered functions to run, in what order, using which of several
// competing implementations - and executes only what is necessary.
//
// The engine is a weighted AND/OR best-first search over a bipartite graph:
// data nodes have OR semantics (any one producer suffices) while function
// nodes have AND semantics (every input must settle first). Alternative
// producers compete on weight, branch eligibility is gated by input-domain
// predicates, callables are invoked lazily, and whole nested graphs can be
// embedded as single function nodes with id renaming.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/smallnest/dispatchgo
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/dispatchgo/dispatch"
//	)
//
//	func main() {
//		d := dispatch.New("demo", "")
//		d.AddData(dispatch.DataOptions{ID: "a"})
//		d.AddData(dispatch.DataOptions{ID: "b"})
//		d.AddFunction(dispatch.FunctionOptions{
//			Inputs:  []string{"a"},
//			Outputs: []string{"b"},
//			Callable: func(ctx context.Context, args []any) ([]any, error) {
//				return []any{args[0].(float64) * 2}, nil
//			},
//		})
//
//		sol, _, _ := d.Dispatch(context.Background(),
//			map[string]any{"a": 3.0}, []string{"b"})
//		fmt.Println(sol["b"]) // 6
//	}
//
// # Packages
//
//   - dispatch: the capability graph, resolver, workflow recorder and
//     Mermaid/DOT exporter
//   - model: vehicle cycle, engine and CO2 emission simulation models wired
//     on the dispatcher
//   - store: run persistence backends (memory, file, SQLite, Redis, Postgres)
//   - config: file and environment configuration for the CLI
//   - log: leveled logging with a golog backend
//
// The dispatchgo command under cmd/dispatchgo runs models, renders graphs
// and workflows, and browses persisted runs.
package dispatchgo
