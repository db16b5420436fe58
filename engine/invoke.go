// ABOUTME: Block invocation adapter: registry lookup, context view construction, and error translation.
// ABOUTME: Panics and implementation errors are converted to BlockError so no foreign error type reaches the scheduler.
package engine

import (
	"context"
	"fmt"
)

// BlockError is the uniform failure type for a block invocation. The adapter
// guarantees every invocation failure surfaces as a *BlockError.
type BlockError struct {
	NodeID  string
	BlockID string
	Message string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %q at node %q failed: %s", e.BlockID, e.NodeID, e.Message)
}

// invokeBlock looks up blockID in the registry and executes it with the given
// resolved inputs. The returned error, when non-nil, is always a *BlockError.
func (e *Engine) invokeBlock(ctx context.Context, nodeID, blockID string, inputs, config map[string]any, state *RunState) (out map[string]any, err error) {
	block := e.cfg.Registry.Get(blockID)
	if block == nil {
		return nil, &BlockError{NodeID: nodeID, BlockID: blockID, Message: "no such block registered"}
	}

	bctx := &BlockContext{
		NodeID:      nodeID,
		User:        state.User(),
		Memory:      state.Memory(),
		Config:      config,
		StageMemory: state.StageMemory,
		Invoke: func(ctx context.Context, innerID string, innerInputs map[string]any) (map[string]any, error) {
			return e.invokeBlock(ctx, nodeID, innerID, innerInputs, nil, state)
		},
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &BlockError{NodeID: nodeID, BlockID: blockID, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	output, execErr := block.Execute(ctx, inputs, bctx)
	if execErr != nil {
		if be, ok := execErr.(*BlockError); ok {
			return nil, be
		}
		return nil, &BlockError{NodeID: nodeID, BlockID: blockID, Message: execErr.Error()}
	}
	if output == nil {
		output = map[string]any{}
	}
	return output, nil
}
