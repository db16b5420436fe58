// ABOUTME: Transform and branch blocks for reshaping data and driving conditional routing.
package blocks

import (
	"context"
	"fmt"

	"github.com/flumehq/flume/engine"
)

// TransformBlock reshapes inputs["source"] (a map): pick limits output to the
// named fields, rename maps old field names to new ones, and defaults fills
// absent fields. Output: the transformed map under unchanged top-level keys.
type TransformBlock struct{}

func (b *TransformBlock) ID() string { return "transform" }

func (b *TransformBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	source, ok := inputs["source"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("transform requires a map source input")
	}

	out := make(map[string]any)

	if pickRaw, ok := inputs["pick"].([]any); ok {
		for _, fieldRaw := range pickRaw {
			field, ok := fieldRaw.(string)
			if !ok {
				return nil, fmt.Errorf("pick entries must be strings, got %T", fieldRaw)
			}
			if v, exists := source[field]; exists {
				out[field] = v
			}
		}
	} else {
		for k, v := range source {
			out[k] = v
		}
	}

	if renames, ok := inputs["rename"].(map[string]any); ok {
		for from, toRaw := range renames {
			to, ok := toRaw.(string)
			if !ok {
				return nil, fmt.Errorf("rename targets must be strings, got %T", toRaw)
			}
			if v, exists := out[from]; exists {
				delete(out, from)
				out[to] = v
			}
		}
	}

	if defaults, ok := inputs["defaults"].(map[string]any); ok {
		for k, v := range defaults {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}

	return out, nil
}

// BranchBlock emits a branch label from inputs["value"] for edge conditions.
// Booleans map to "yes"/"no"; everything else is its string form.
type BranchBlock struct{}

func (b *BranchBlock) ID() string { return "branch" }

func (b *BranchBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	value, ok := inputs["value"]
	if !ok {
		return nil, fmt.Errorf("branch requires a value input")
	}

	var label string
	if flag, isBool := value.(bool); isBool {
		if flag {
			label = "yes"
		} else {
			label = "no"
		}
	} else {
		label = engine.Stringify(value)
	}

	return map[string]any{"branch": label, "value": value}, nil
}
