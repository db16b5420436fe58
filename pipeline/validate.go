// ABOUTME: Document-level validation for pipeline definitions with a pluggable lint-rule interface.
// ABOUTME: Catches structural problems (duplicate ids, dangling edges, cycles, bad conditions) before a run starts.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/flumehq/flume/engine"
)

// Severity represents diagnostic severity level.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns a human-readable name for the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Diagnostic represents a validation finding.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	NodeID   string // optional
}

// LintRule is the interface for validation rules.
type LintRule interface {
	Name() string
	Apply(d *Definition) []Diagnostic
}

// reservedNamespaces are template namespaces a node id may not shadow.
var reservedNamespaces = map[string]bool{
	"memory":  true,
	"user":    true,
	"trigger": true,
}

// builtinRules returns all built-in lint rules.
func builtinRules() []LintRule {
	return []LintRule{
		&pipelineIDRule{},
		&nodeIDRule{},
		&blockIDRule{},
		&edgeEndpointRule{},
		&conditionSyntaxRule{},
		&acyclicRule{},
	}
}

// Validate runs all built-in lint rules plus any extra rules on the definition.
func Validate(d *Definition, extraRules ...LintRule) []Diagnostic {
	var diags []Diagnostic
	rules := append(builtinRules(), extraRules...)
	for _, rule := range rules {
		diags = append(diags, rule.Apply(d)...)
	}
	return diags
}

// ValidateOrError runs validation and returns an error if any ERROR-severity
// diagnostics exist.
func ValidateOrError(d *Definition, extraRules ...LintRule) ([]Diagnostic, error) {
	diags := Validate(d, extraRules...)

	var errCount int
	for _, diag := range diags {
		if diag.Severity == SeverityError {
			errCount++
		}
	}
	if errCount > 0 {
		return diags, fmt.Errorf("pipeline validation failed with %d error(s)", errCount)
	}
	return diags, nil
}

// --- Built-in lint rules ---

type pipelineIDRule struct{}

func (r *pipelineIDRule) Name() string { return "pipeline-id" }

func (r *pipelineIDRule) Apply(d *Definition) []Diagnostic {
	if d.ID == "" {
		return []Diagnostic{{
			Rule: r.Name(), Severity: SeverityError,
			Message: "pipeline must have an id",
		}}
	}
	return nil
}

type nodeIDRule struct{}

func (r *nodeIDRule) Name() string { return "node-ids" }

func (r *nodeIDRule) Apply(d *Definition) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]bool, len(d.Nodes))

	if len(d.Nodes) == 0 {
		diags = append(diags, Diagnostic{
			Rule: r.Name(), Severity: SeverityError,
			Message: "pipeline must have at least one node",
		})
	}

	for _, n := range d.Nodes {
		switch {
		case n.ID == "":
			diags = append(diags, Diagnostic{
				Rule: r.Name(), Severity: SeverityError,
				Message: "node has empty id",
			})
		case seen[n.ID]:
			diags = append(diags, Diagnostic{
				Rule: r.Name(), Severity: SeverityError, NodeID: n.ID,
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
			})
		case reservedNamespaces[n.ID]:
			diags = append(diags, Diagnostic{
				Rule: r.Name(), Severity: SeverityError, NodeID: n.ID,
				Message: fmt.Sprintf("node id %q shadows a reserved template namespace", n.ID),
			})
		}
		seen[n.ID] = true
	}
	return diags
}

type blockIDRule struct{}

func (r *blockIDRule) Name() string { return "block-ids" }

func (r *blockIDRule) Apply(d *Definition) []Diagnostic {
	var diags []Diagnostic
	for _, n := range d.Nodes {
		if n.BlockID == "" {
			diags = append(diags, Diagnostic{
				Rule: r.Name(), Severity: SeverityError, NodeID: n.ID,
				Message: fmt.Sprintf("node %q has no block_id", n.ID),
			})
		}
	}
	return diags
}

type edgeEndpointRule struct{}

func (r *edgeEndpointRule) Name() string { return "edge-endpoints" }

func (r *edgeEndpointRule) Apply(d *Definition) []Diagnostic {
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = true
	}

	var diags []Diagnostic
	for _, e := range d.Edges {
		for _, endpoint := range []string{e.From, e.To} {
			if !ids[endpoint] {
				diags = append(diags, Diagnostic{
					Rule: r.Name(), Severity: SeverityError, NodeID: endpoint,
					Message: fmt.Sprintf("edge %s -> %s references unknown node %q", e.From, e.To, endpoint),
				})
			}
		}
	}
	return diags
}

type conditionSyntaxRule struct{}

func (r *conditionSyntaxRule) Name() string { return "condition-syntax" }

func (r *conditionSyntaxRule) Apply(d *Definition) []Diagnostic {
	var diags []Diagnostic
	for _, e := range d.Edges {
		if err := engine.ValidateCondition(e.Condition); err != nil {
			diags = append(diags, Diagnostic{
				Rule: r.Name(), Severity: SeverityError,
				Message: fmt.Sprintf("edge %s -> %s: %v", e.From, e.To, err),
			})
		}
	}
	return diags
}

type acyclicRule struct{}

func (r *acyclicRule) Name() string { return "acyclic" }

func (r *acyclicRule) Apply(d *Definition) []Diagnostic {
	// Endpoint and id problems are reported by their own rules; building the
	// DAG here would double-report them.
	if len(preValidate(d)) > 0 {
		return nil
	}

	_, err := engine.BuildDAG(d.Graph())
	var cycle *engine.CycleError
	if errors.As(err, &cycle) {
		return []Diagnostic{{
			Rule: r.Name(), Severity: SeverityError,
			Message: cycle.Error(),
		}}
	}
	return nil
}

// preValidate runs the structural rules the acyclic check depends on.
func preValidate(d *Definition) []Diagnostic {
	var diags []Diagnostic
	for _, rule := range []LintRule{&nodeIDRule{}, &edgeEndpointRule{}} {
		diags = append(diags, rule.Apply(d)...)
	}
	return diags
}
