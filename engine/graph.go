// ABOUTME: Graph model and dependency DAG builder for the flume pipeline engine.
// ABOUTME: Validates edge endpoints, computes predecessor/successor sets, and rejects cyclic graphs.
package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one block invocation in a pipeline graph. Inputs may contain
// template references that are resolved against the run state at launch time.
type Node struct {
	ID      string
	BlockID string
	Inputs  map[string]any
	Config  map[string]any
}

// Edge is a directed dependency between two nodes. A non-empty Condition
// gates the edge on the source node's output.
type Edge struct {
	From      string
	To        string
	Condition string
}

// Graph is the immutable description of one pipeline.
type Graph struct {
	PipelineID string
	Nodes      []*Node
	Edges      []*Edge
	MemoryKeys []string
}

// CycleError reports a directed cycle in the pipeline graph, naming the
// node ids that participate in it.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline graph contains a cycle: %s", strings.Join(e.Nodes, " -> "))
}

// DanglingEdgeError reports an edge endpoint that names no node in the graph.
type DanglingEdgeError struct {
	From    string
	To      string
	Missing string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown node %q", e.From, e.To, e.Missing)
}

// DAG is the executable form of a validated pipeline graph: node lookup plus
// precomputed predecessor and successor edge sets.
type DAG struct {
	nodes map[string]*Node
	order []string // node ids in definition order
	preds map[string][]*Edge
	succs map[string][]*Edge
}

// BuildDAG validates a graph and computes its dependency structure.
// It fails with *DanglingEdgeError if an edge endpoint names no node, and
// with *CycleError if the edge set contains a directed cycle.
func BuildDAG(g *Graph) (*DAG, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("pipeline graph has no nodes")
	}

	d := &DAG{
		nodes: make(map[string]*Node, len(g.Nodes)),
		order: make([]string, 0, len(g.Nodes)),
		preds: make(map[string][]*Edge),
		succs: make(map[string][]*Edge),
	}

	for _, n := range g.Nodes {
		if _, exists := d.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		d.nodes[n.ID] = n
		d.order = append(d.order, n.ID)
	}

	for _, e := range g.Edges {
		if _, ok := d.nodes[e.From]; !ok {
			return nil, &DanglingEdgeError{From: e.From, To: e.To, Missing: e.From}
		}
		if _, ok := d.nodes[e.To]; !ok {
			return nil, &DanglingEdgeError{From: e.From, To: e.To, Missing: e.To}
		}
		d.succs[e.From] = append(d.succs[e.From], e)
		d.preds[e.To] = append(d.preds[e.To], e)
	}

	if cycle := d.findCycle(); cycle != nil {
		return nil, &CycleError{Nodes: cycle}
	}

	return d, nil
}

// Node returns the node with the given id, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// NodeIDs returns all node ids in definition order.
func (d *DAG) NodeIDs() []string {
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	return ids
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Predecessors returns the incoming edges of the given node.
func (d *DAG) Predecessors(id string) []*Edge {
	return d.preds[id]
}

// Successors returns the outgoing edges of the given node.
func (d *DAG) Successors(id string) []*Edge {
	return d.succs[id]
}

// Roots returns the ids of all nodes with no predecessors, sorted for
// deterministic launch order.
func (d *DAG) Roots() []string {
	var roots []string
	for _, id := range d.order {
		if len(d.preds[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// traversal colors for cycle detection
const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS path
	colorBlack        // fully explored
)

// findCycle runs a depth-first coloring pass over the edge set and returns
// the node ids on the first back-edge path found, or nil if the graph is acyclic.
func (d *DAG) findCycle() []string {
	colors := make(map[string]int, len(d.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = colorGray
		stack = append(stack, id)

		for _, e := range d.succs[id] {
			switch colors[e.To] {
			case colorGray:
				// Back-edge: the cycle is the stack suffix starting at e.To.
				for i, sid := range stack {
					if sid == e.To {
						cycle = append(cycle, stack[i:]...)
						cycle = append(cycle, e.To)
						return true
					}
				}
			case colorWhite:
				if visit(e.To) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = colorBlack
		return false
	}

	for _, id := range d.order {
		if colors[id] == colorWhite {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
