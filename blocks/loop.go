// ABOUTME: Loop block driving one inner-block invocation per item of a collection input.
// ABOUTME: Per-item failures are collected, not fatal: the loop completes with partial results and an errors list.
package blocks

import (
	"context"
	"fmt"

	"github.com/flumehq/flume/engine"
)

// LoopBlock invokes inputs["block"] once per element of inputs["items"],
// through the engine's own invocation path (bctx.Invoke). Each sub-invocation
// receives {item, index} merged with the static inputs["with"] map.
//
// Output: items (ordered sub-results, nil where an iteration failed),
// errors (per-item failure messages), count, and failed. Iteration failures
// do not abort the loop or fail the node; downstream edges can gate on the
// failed count.
type LoopBlock struct{}

func (b *LoopBlock) ID() string { return "loop" }

func (b *LoopBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	items, ok := inputs["items"].([]any)
	if !ok {
		return nil, fmt.Errorf("loop requires a list items input")
	}
	innerID := stringInput(inputs, "block", "")
	if innerID == "" {
		return nil, fmt.Errorf("loop requires a block input naming the inner block")
	}
	static, _ := inputs["with"].(map[string]any)

	results := make([]any, 0, len(items))
	var errs []any
	failed := 0

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		itemInputs := map[string]any{"item": item, "index": i}
		for k, v := range static {
			itemInputs[k] = v
		}

		out, err := bctx.Invoke(ctx, innerID, itemInputs)
		if err != nil {
			failed++
			results = append(results, nil)
			errs = append(errs, fmt.Sprintf("item %d: %s", i, err.Error()))
			continue
		}
		results = append(results, out)
	}

	return map[string]any{
		"items":  results,
		"errors": errs,
		"count":  len(items),
		"failed": failed,
	}, nil
}
