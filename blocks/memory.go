// ABOUTME: Memory blocks reading the run's memory snapshot and staging writes into the pending patch.
// ABOUTME: Writes never touch the snapshot mid-run; they are applied by the engine's finalize step.
package blocks

import (
	"context"
	"fmt"

	"github.com/flumehq/flume/engine"
)

// MemoryGetBlock reads keys from the run's memory snapshot. With
// inputs["key"] it outputs {value, found}; with inputs["keys"] (a list) it
// outputs {values} mapping each present key to its value.
type MemoryGetBlock struct{}

func (b *MemoryGetBlock) ID() string { return "memory_get" }

func (b *MemoryGetBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	if key := stringInput(inputs, "key", ""); key != "" {
		value, found := bctx.Memory[key]
		return map[string]any{"value": value, "found": found}, nil
	}

	keysRaw, ok := inputs["keys"].([]any)
	if !ok {
		return nil, fmt.Errorf("memory_get requires a key or keys input")
	}

	values := make(map[string]any)
	for _, kRaw := range keysRaw {
		k, ok := kRaw.(string)
		if !ok {
			return nil, fmt.Errorf("keys entries must be strings, got %T", kRaw)
		}
		if v, found := bctx.Memory[k]; found {
			values[k] = v
		}
	}
	return map[string]any{"values": values}, nil
}

// MemorySetBlock stages writes into the run's pending memory patch, either a
// single inputs["key"]/inputs["value"] pair or an inputs["values"] map.
// Output: {staged: n}.
type MemorySetBlock struct{}

func (b *MemorySetBlock) ID() string { return "memory_set" }

func (b *MemorySetBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	staged := 0

	if key := stringInput(inputs, "key", ""); key != "" {
		bctx.StageMemory(key, inputs["value"])
		staged++
	} else if values, ok := inputs["values"].(map[string]any); ok {
		for k, v := range values {
			bctx.StageMemory(k, v)
			staged++
		}
	}

	if staged == 0 {
		return nil, fmt.Errorf("memory_set requires a key or a values map")
	}
	return map[string]any{"staged": staged}, nil
}
