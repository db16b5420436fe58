// ABOUTME: Condition expression grammar for edge guards, evaluated against a source node's output.
// ABOUTME: Grammar: Clause ('&&' Clause)*; Clause: Field (('='|'=='|'!=') Literal)?; bare Field is a truthiness test.
package engine

import (
	"fmt"
	"strings"
)

// EvaluateCondition evaluates an edge condition against the source node's
// output map. An empty or whitespace-only condition is unconditional and
// evaluates to true. Comparisons are made on the string form of the field's
// value, so `passed = true` and `branch != no` behave as expected for bool
// and string outputs alike. A clause with no operator falls back to a
// truthiness test of the named field.
func EvaluateCondition(condition string, output map[string]any) bool {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true
	}

	for _, clause := range strings.Split(trimmed, "&&") {
		if !evaluateClause(strings.TrimSpace(clause), output) {
			return false
		}
	}
	return true
}

// ValidateCondition checks condition syntax without evaluating it. It is used
// by pipeline validation to reject malformed guards before a run starts.
func ValidateCondition(condition string) error {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return nil
	}
	for _, clause := range strings.Split(trimmed, "&&") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return fmt.Errorf("empty clause in condition %q", condition)
		}
		field, _, _ := splitClause(clause)
		if field == "" {
			return fmt.Errorf("clause %q has no field name", clause)
		}
	}
	return nil
}

// evaluateClause evaluates a single "field op literal" clause, or a bare
// "field" truthiness test.
func evaluateClause(clause string, output map[string]any) bool {
	field, op, literal := splitClause(clause)
	if field == "" {
		return false
	}

	value, ok := lookupField(field, output)

	switch op {
	case "!=":
		if !ok {
			return literal != ""
		}
		return Stringify(value) != literal
	case "=":
		if !ok {
			return literal == ""
		}
		return Stringify(value) == literal
	default:
		// No operator: truthiness of the field value.
		return ok && truthy(value)
	}
}

// splitClause breaks a clause into field, operator, and literal. "==" is
// normalized to "=". An absent operator returns op == "".
func splitClause(clause string) (field, op, literal string) {
	if idx := strings.Index(clause, "!="); idx >= 0 {
		return strings.TrimSpace(clause[:idx]), "!=", strings.TrimSpace(clause[idx+2:])
	}
	if idx := strings.Index(clause, "=="); idx >= 0 {
		return strings.TrimSpace(clause[:idx]), "=", strings.TrimSpace(clause[idx+2:])
	}
	if idx := strings.Index(clause, "="); idx >= 0 {
		return strings.TrimSpace(clause[:idx]), "=", strings.TrimSpace(clause[idx+1:])
	}
	return strings.TrimSpace(clause), "", ""
}

// lookupField walks a dotted field path through the output map.
func lookupField(field string, output map[string]any) (any, bool) {
	var current any = output
	for _, segment := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// truthy reports whether a value counts as true in a bare-field clause.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && !strings.EqualFold(t, "false")
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
