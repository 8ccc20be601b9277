package dispatch

import (
	"fmt"
	"strings"
)

// Exporter renders a capability graph, and optionally a recorded workflow,
// in formats suitable for diagram tools. It only reads the graph and the
// workflow; it never mutates resolution state.
type Exporter struct {
	graph *Dispatcher
}

// NewExporter creates an exporter for the given dispatcher.
func NewExporter(graph *Dispatcher) *Exporter {
	return &Exporter{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation.
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram of the capability graph.
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Data nodes are drawn as stadiums, function nodes as rectangles with their
// weight when non-zero, and sub-dispatcher nodes as subroutine shapes.
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	sb.WriteString("    START([\"START\"])\n")
	sb.WriteString("    style START fill:#90EE90\n")

	for _, id := range e.graph.DataIDs() {
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", mermaidID(id), id))
	}

	hasSink := false
	for _, id := range e.graph.FunctionIDs() {
		node := e.graph.functions[id]
		label := id
		if node.Weight > 0 {
			label = fmt.Sprintf("%s (w=%g)", id, node.Weight)
		}
		if node.IsSubDispatcher() {
			sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", mermaidID(id), label))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(id), label))
		}

		for _, in := range node.Inputs {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(in), mermaidID(id)))
		}
		for _, out := range node.Outputs {
			if out == SINK {
				hasSink = true
			}
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(id), mermaidID(out)))
		}
		if node.InputDomain != nil {
			sb.WriteString(fmt.Sprintf("    style %s stroke-dasharray: 5 5\n", mermaidID(id)))
		}
	}

	if hasSink {
		sb.WriteString("    SINK([\"SINK\"])\n")
		sb.WriteString("    style SINK fill:#FFB6C1\n")
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the capability graph.
func (e *Exporter) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")

	for _, id := range e.graph.DataIDs() {
		sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", shape=ellipse];\n", mermaidID(id), id))
	}

	hasSink := false
	for _, id := range e.graph.FunctionIDs() {
		node := e.graph.functions[id]
		label := id
		if node.Weight > 0 {
			label = fmt.Sprintf("%s\\nw=%g", id, node.Weight)
		}
		attrs := "shape=box"
		if node.IsSubDispatcher() {
			attrs = "shape=box3d"
		}
		if node.InputDomain != nil {
			attrs += ", style=dashed"
		}
		sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", %s];\n", mermaidID(id), label, attrs))

		for _, in := range node.Inputs {
			sb.WriteString(fmt.Sprintf("    %s -> %s;\n", mermaidID(in), mermaidID(id)))
		}
		for _, out := range node.Outputs {
			if out == SINK {
				hasSink = true
			}
			sb.WriteString(fmt.Sprintf("    %s -> %s;\n", mermaidID(id), mermaidID(out)))
		}
	}

	if hasSink {
		sb.WriteString("    SINK [label=\"SINK\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

// WorkflowExporter renders the recorded trace of one resolution run.
type WorkflowExporter struct {
	workflow *Workflow
}

// NewWorkflowExporter creates an exporter for the given workflow.
func NewWorkflowExporter(workflow *Workflow) *WorkflowExporter {
	return &WorkflowExporter{workflow: workflow}
}

// DrawMermaid generates a Mermaid diagram of the workflow, with the values
// that flowed as edge labels and failed nodes highlighted.
func (e *WorkflowExporter) DrawMermaid() string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	for _, node := range e.workflow.Nodes() {
		id := mermaidID(node.ID)
		switch node.Kind {
		case KindStart:
			sb.WriteString(fmt.Sprintf("    %s([\"START\"])\n", id))
			sb.WriteString(fmt.Sprintf("    style %s fill:#90EE90\n", id))
		case KindSink:
			sb.WriteString(fmt.Sprintf("    %s([\"SINK\"])\n", id))
			sb.WriteString(fmt.Sprintf("    style %s fill:#FFB6C1\n", id))
		case KindFunction:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, node.ID))
			if node.Err != nil {
				sb.WriteString(fmt.Sprintf("    style %s fill:#FF6347\n", id))
			}
		default:
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, node.ID))
		}
	}

	for _, edge := range e.workflow.Edges() {
		if edge.HasValue {
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n",
				mermaidID(edge.From), mermaidLabel(edge.Value), mermaidID(edge.To)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(edge.From), mermaidID(edge.To)))
		}
	}

	return sb.String()
}

// DrawDOT generates a DOT representation of the workflow.
func (e *WorkflowExporter) DrawDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph workflow {\n")
	sb.WriteString("    rankdir=TD;\n")

	for _, node := range e.workflow.Nodes() {
		id := mermaidID(node.ID)
		switch node.Kind {
		case KindStart:
			sb.WriteString(fmt.Sprintf("    %s [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n", id))
		case KindSink:
			sb.WriteString(fmt.Sprintf("    %s [label=\"SINK\", shape=ellipse, style=filled, fillcolor=lightpink];\n", id))
		case KindFunction:
			attrs := "shape=box"
			if node.Err != nil {
				attrs = "shape=box, style=filled, fillcolor=tomato"
			}
			sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", %s];\n", id, node.ID, attrs))
		default:
			sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", shape=ellipse];\n", id, node.ID))
		}
	}

	for _, edge := range e.workflow.Edges() {
		if edge.HasValue {
			sb.WriteString(fmt.Sprintf("    %s -> %s [label=\"%s\"];\n",
				mermaidID(edge.From), mermaidID(edge.To), mermaidLabel(edge.Value)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -> %s;\n", mermaidID(edge.From), mermaidID(edge.To)))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// mermaidID makes a node id safe for Mermaid and DOT identifiers.
func mermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// mermaidLabel formats a flowed value as a short edge label.
func mermaidLabel(v any) string {
	s := fmt.Sprintf("%v", v)
	s = strings.NewReplacer("\"", "'", "\n", " ", "|", "/").Replace(s)
	if len(s) > 24 {
		s = s[:21] + "..."
	}
	return s
}
