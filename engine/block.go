// ABOUTME: Block capability interface and the registry mapping block ids to implementations.
// ABOUTME: The registry is constructed once at process start and read-only thereafter.
package engine

import (
	"context"
	"sort"
)

// Block is a named unit of work with a fixed input/output map contract.
// Implementations may perform side effects; those are opaque to the engine.
type Block interface {
	// ID returns the block's registry id (e.g. "threshold", "notify").
	ID() string

	// Execute runs the block with fully resolved inputs. It returns an output
	// map or an error; the invocation adapter translates any error (or panic)
	// into a BlockError before it reaches the scheduler.
	Execute(ctx context.Context, inputs map[string]any, bctx *BlockContext) (map[string]any, error)
}

// BlockContext is the context view handed to a block implementation alongside
// its inputs. User and Memory are read-only snapshots.
type BlockContext struct {
	NodeID string
	User   map[string]any
	Memory map[string]any
	Config map[string]any

	// StageMemory stages a write into the run's pending memory patch.
	StageMemory func(key string, value any)

	// Invoke runs another registered block through the engine's invocation
	// path. Used by the loop block to drive per-item sub-invocations.
	Invoke func(ctx context.Context, blockID string, inputs map[string]any) (map[string]any, error)
}

// Registry maps block ids to implementations. Register all blocks before
// handing the registry to an Engine; it is not safe for concurrent mutation.
type Registry struct {
	blocks map[string]Block
}

// NewRegistry creates an empty block registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]Block)}
}

// Register adds a block, keyed by its ID. Registering an already-registered
// id replaces the previous block.
func (r *Registry) Register(b Block) {
	r.blocks[b.ID()] = b
}

// Get returns the block registered under the given id, or nil if not found.
func (r *Registry) Get(id string) Block {
	return r.blocks[id]
}

// IDs returns all registered block ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.blocks))
	for id := range r.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
