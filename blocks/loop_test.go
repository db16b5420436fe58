// ABOUTME: Tests for the loop block: per-item invocation, ordering, and partial-failure collection.
package blocks

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/flumehq/flume/engine"
)

// loopContext builds a BlockContext whose Invoke dispatches to the given function.
func loopContext(invoke func(blockID string, inputs map[string]any) (map[string]any, error)) *engine.BlockContext {
	return &engine.BlockContext{
		Invoke: func(ctx context.Context, blockID string, inputs map[string]any) (map[string]any, error) {
			return invoke(blockID, inputs)
		},
	}
}

func TestLoopInvokesPerItemInOrder(t *testing.T) {
	var seen []map[string]any
	bctx := loopContext(func(blockID string, inputs map[string]any) (map[string]any, error) {
		if blockID != "double" {
			t.Errorf("unexpected inner block %q", blockID)
		}
		seen = append(seen, inputs)
		n, _ := toFloat(inputs["item"])
		return map[string]any{"doubled": n * 2}, nil
	})

	out, err := (&LoopBlock{}).Execute(context.Background(), map[string]any{
		"items": []any{float64(1), float64(2), float64(3)},
		"block": "double",
		"with":  map[string]any{"mode": "fast"},
	}, bctx)
	if err != nil {
		t.Fatalf("loop failed: %v", err)
	}

	if out["count"] != 3 || out["failed"] != 0 {
		t.Errorf("unexpected counts: %v", out)
	}

	results := out["items"].([]any)
	want := []any{
		map[string]any{"doubled": float64(2)},
		map[string]any{"doubled": float64(4)},
		map[string]any{"doubled": float64(6)},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("loop results = %v, want %v", results, want)
	}

	// Every sub-invocation carries item, index, and the static with-fields.
	for i, inputs := range seen {
		if inputs["index"] != i {
			t.Errorf("item %d index = %v", i, inputs["index"])
		}
		if inputs["mode"] != "fast" {
			t.Errorf("item %d missing static input: %v", i, inputs)
		}
	}
}

func TestLoopCollectsPartialFailures(t *testing.T) {
	bctx := loopContext(func(blockID string, inputs map[string]any) (map[string]any, error) {
		if inputs["index"] == 1 {
			return nil, fmt.Errorf("item exploded")
		}
		return map[string]any{"ok": true}, nil
	})

	out, err := (&LoopBlock{}).Execute(context.Background(), map[string]any{
		"items": []any{"a", "b", "c"},
		"block": "inner",
	}, bctx)
	if err != nil {
		t.Fatalf("per-item failures must not fail the loop: %v", err)
	}

	if out["failed"] != 1 {
		t.Errorf("failed = %v, want 1", out["failed"])
	}
	results := out["items"].([]any)
	if results[0] == nil || results[1] != nil || results[2] == nil {
		t.Errorf("expected nil placeholder only for the failed item: %v", results)
	}
	errs := out["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error entry, got %v", errs)
	}
}

func TestLoopRequiresItemsAndBlock(t *testing.T) {
	b := &LoopBlock{}
	if _, err := b.Execute(context.Background(), map[string]any{"block": "x"}, loopContext(nil)); err == nil {
		t.Error("expected error without items")
	}
	if _, err := b.Execute(context.Background(), map[string]any{"items": []any{}}, loopContext(nil)); err == nil {
		t.Error("expected error without block")
	}
}
