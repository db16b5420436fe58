// ABOUTME: Threshold block comparing a numeric value against a limit with a configurable operator.
// ABOUTME: Emits passed (bool) and branch ("yes"/"no") for downstream conditional routing.
package blocks

import (
	"context"
	"fmt"

	"github.com/flumehq/flume/engine"
)

// ThresholdBlock compares inputs["value"] against inputs["threshold"] using
// inputs["operator"] (default ">"). Output: value, threshold, operator,
// passed, and branch ("yes" when passed, "no" otherwise).
type ThresholdBlock struct{}

func (b *ThresholdBlock) ID() string { return "threshold" }

func (b *ThresholdBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	value, err := toFloat(inputs["value"])
	if err != nil {
		return nil, fmt.Errorf("input value: %w", err)
	}
	threshold, err := toFloat(inputs["threshold"])
	if err != nil {
		return nil, fmt.Errorf("input threshold: %w", err)
	}
	operator := stringInput(inputs, "operator", ">")

	var passed bool
	switch operator {
	case ">":
		passed = value > threshold
	case ">=":
		passed = value >= threshold
	case "<":
		passed = value < threshold
	case "<=":
		passed = value <= threshold
	case "==", "=":
		passed = value == threshold
	case "!=":
		passed = value != threshold
	default:
		return nil, fmt.Errorf("unknown operator %q", operator)
	}

	branch := "no"
	if passed {
		branch = "yes"
	}

	return map[string]any{
		"value":     value,
		"threshold": threshold,
		"operator":  operator,
		"passed":    passed,
		"branch":    branch,
	}, nil
}
