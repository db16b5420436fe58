// ABOUTME: Conditional router deciding which outgoing edges stay live after a node completes.
// ABOUTME: Unconditional edges are always live; conditional edges are evaluated against the node's output.
package engine

// LiveSuccessors returns, for a successfully completed node, the set of
// outgoing edges that remain live for downstream scheduling. Edges whose
// condition evaluates false are pruned; the scheduler marks targets with no
// remaining live incoming edge as skipped.
func LiveSuccessors(d *DAG, nodeID string, output map[string]any) map[*Edge]bool {
	live := make(map[*Edge]bool)
	for _, e := range d.Successors(nodeID) {
		live[e] = EvaluateCondition(e.Condition, output)
	}
	return live
}
