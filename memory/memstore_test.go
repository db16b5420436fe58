// ABOUTME: Tests for the in-memory store, including its use as an engine collaborator.
package memory

import (
	"context"
	"testing"

	"github.com/flumehq/flume/engine"
)

func TestMemStoreLoadSave(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if err := s.PutUser(ctx, "u1", map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}
	if err := s.Save(ctx, "u1", map[string]any{"greeting": "hello", "count": 2}, "run-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	user, mem, err := s.Load(ctx, "u1", []string{"greeting"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if user["name"] != "Ada" {
		t.Errorf("user = %v", user)
	}
	if len(mem) != 1 || mem["greeting"] != "hello" {
		t.Errorf("memory = %v", mem)
	}

	// nil keys loads everything.
	_, mem, _ = s.Load(ctx, "u1", nil)
	if len(mem) != 2 {
		t.Errorf("memory = %v", mem)
	}
}

func TestMemStoreLoadCopies(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_ = s.Save(ctx, "u1", map[string]any{"greeting": "hello"}, "run-1")

	_, mem, _ := s.Load(ctx, "u1", nil)
	mem["greeting"] = "mutated"

	_, again, _ := s.Load(ctx, "u1", nil)
	if again["greeting"] != "hello" {
		t.Errorf("caller mutation leaked into store: %v", again)
	}
}

func TestMemStoreDrivesEngineRun(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.Save(ctx, "u1", map[string]any{"greeting": "hello"}, "seed")

	reg := engine.NewRegistry()
	reg.Register(stagingBlock{})

	e := engine.New(engine.Config{Registry: reg, Memory: s})
	g := &engine.Graph{
		PipelineID: "p1",
		Nodes: []*engine.Node{{ID: "n1", BlockID: "stage", Inputs: map[string]any{
			"echo": "{{memory.greeting}}",
		}}},
		MemoryKeys: []string{"greeting"},
	}

	result, err := e.Run(ctx, g, nil, "u1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Results["n1"]["echo"] != "hello" {
		t.Errorf("memory not visible to block: %v", result.Results["n1"])
	}

	// The staged patch must be persisted at finalize.
	_, mem, _ := s.Load(ctx, "u1", []string{"visits"})
	if mem["visits"] != float64(1) {
		t.Errorf("staged memory not saved: %v", mem)
	}
}

type stagingBlock struct{}

func (stagingBlock) ID() string { return "stage" }

func (stagingBlock) Execute(_ context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	bctx.StageMemory("visits", float64(1))
	return map[string]any{"echo": inputs["echo"]}, nil
}
