// ABOUTME: Tests for RunState: write-once results, ordered logs, and memory patch staging.
package engine

import (
	"sync"
	"testing"
	"time"
)

func TestRunStateResultsWriteOnce(t *testing.T) {
	s := NewRunState(nil, nil, nil)

	s.SetResult("n1", map[string]any{"v": 1})
	s.SetResult("n1", map[string]any{"v": 2})

	out, ok := s.Result("n1")
	if !ok {
		t.Fatal("expected result for n1")
	}
	if out["v"] != 1 {
		t.Errorf("second write should be ignored, got %v", out["v"])
	}
}

func TestRunStateNilOutputBecomesEmptyMap(t *testing.T) {
	s := NewRunState(nil, nil, nil)
	s.SetResult("n1", nil)

	out, ok := s.Result("n1")
	if !ok || out == nil {
		t.Fatalf("expected empty map for nil output, got %v ok=%v", out, ok)
	}
}

func TestRunStateLogOrder(t *testing.T) {
	s := NewRunState(nil, nil, nil)

	for _, id := range []string{"a", "b", "c"} {
		s.AppendStep(StepRecord{NodeID: id, Status: StatusCompleted, At: time.Now()})
	}

	log := s.Log()
	if len(log) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(log))
	}
	for i, want := range []string{"a", "b", "c"} {
		if log[i].NodeID != want {
			t.Errorf("log[%d] = %s, want %s", i, log[i].NodeID, want)
		}
	}
}

func TestRunStateMemoryPatchLeavesSnapshotUntouched(t *testing.T) {
	s := NewRunState(nil, map[string]any{"greeting": "hello"}, nil)

	s.StageMemory("greeting", "howdy")
	s.StageMemory("new_key", 42)

	if s.Memory()["greeting"] != "hello" {
		t.Error("staging must not mutate the in-run snapshot")
	}

	patch := s.MemoryPatch()
	if patch["greeting"] != "howdy" || patch["new_key"] != 42 {
		t.Errorf("unexpected patch: %v", patch)
	}
}

func TestRunStateConcurrentWriters(t *testing.T) {
	s := NewRunState(nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			s.SetResult(id+"x", map[string]any{"n": n})
			s.AppendStep(StepRecord{NodeID: id, Status: StatusCompleted})
			s.AppendError(ErrorRecord{NodeID: id, Message: "err"})
		}(i)
	}
	wg.Wait()

	if len(s.Log()) != 50 || len(s.Errors()) != 50 {
		t.Errorf("expected 50 log and error entries, got %d and %d", len(s.Log()), len(s.Errors()))
	}
}

func TestNodeStatusTerminal(t *testing.T) {
	terminal := []NodeStatus{StatusCompleted, StatusFailed, StatusSkipped}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Errorf("%s should be terminal", st)
		}
	}
	for _, st := range []NodeStatus{StatusPending, StatusReady, StatusRunning} {
		if st.Terminal() {
			t.Errorf("%s should not be terminal", st)
		}
	}
}
