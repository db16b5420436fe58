// ABOUTME: Tests for the AppModel message routing and the board/log/status sub-panels.
package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flumehq/flume/engine"
)

func testGraph() *engine.Graph {
	return &engine.Graph{
		PipelineID: "alerts",
		Nodes: []*engine.Node{
			{ID: "n1", BlockID: "threshold"},
			{ID: "n2", BlockID: "notify"},
		},
		Edges: []*engine.Edge{{From: "n1", To: "n2"}},
	}
}

func newTestApp() AppModel {
	return NewAppModel(context.Background(), engine.New(engine.Config{}), testGraph(), nil, "")
}

func event(typ engine.EventType, nodeID string) EngineEventMsg {
	return EngineEventMsg{Event: engine.Event{
		Type: typ, RunID: "r1", NodeID: nodeID, Timestamp: time.Now(),
	}}
}

func update(t *testing.T, m AppModel, msg tea.Msg) AppModel {
	t.Helper()
	next, _ := m.Update(msg)
	app, ok := next.(AppModel)
	if !ok {
		t.Fatalf("Update returned %T, want AppModel", next)
	}
	return app
}

func TestEngineEventsDriveBoard(t *testing.T) {
	m := newTestApp()

	m = update(t, m, event(engine.EventRunStarted, ""))
	m = update(t, m, event(engine.EventNodeStarted, "n1"))
	if m.board.Status("n1") != engine.StatusRunning {
		t.Errorf("n1 status = %s", m.board.Status("n1"))
	}

	m = update(t, m, event(engine.EventNodeCompleted, "n1"))
	m = update(t, m, event(engine.EventNodeSkipped, "n2"))

	if m.board.Status("n1") != engine.StatusCompleted {
		t.Errorf("n1 status = %s", m.board.Status("n1"))
	}
	if m.board.Status("n2") != engine.StatusSkipped {
		t.Errorf("n2 status = %s", m.board.Status("n2"))
	}
	if m.completed != 1 {
		t.Errorf("completed = %d", m.completed)
	}
	if m.log.Len() != 4 {
		t.Errorf("log entries = %d", m.log.Len())
	}
}

func TestViewShowsNodesAndStatus(t *testing.T) {
	m := newTestApp()
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = update(t, m, event(engine.EventRunStarted, ""))
	m = update(t, m, event(engine.EventNodeFailed, "n1"))
	m = update(t, m, RunResultMsg{Err: nil})

	view := m.View()
	if !strings.Contains(view, "n1 (threshold)") || !strings.Contains(view, "n2 (notify)") {
		t.Errorf("board missing nodes:\n%s", view)
	}
	if !strings.Contains(view, "FAILED") {
		t.Errorf("status bar missing FAILED:\n%s", view)
	}
	if !strings.Contains(view, "Run: r1") {
		t.Errorf("status bar missing run id:\n%s", view)
	}
}

func TestViewGuardsSmallTerminals(t *testing.T) {
	m := newTestApp()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("zero-size view = %q", got)
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Errorf("small view = %q", m.View())
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestApp()
	for _, key := range []string{"q", "ctrl+c"} {
		var msg tea.KeyMsg
		if key == "q" {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("key %q: expected quit command", key)
		}
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := newTestApp()

	_, cmd := m.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("expected follow-up tick while running")
	}

	m = update(t, m, RunResultMsg{})
	_, cmd = m.Update(TickMsg{Time: time.Now()})
	if cmd != nil {
		t.Error("expected no tick after done")
	}
}

func TestLogPanelEvictsAtCapacity(t *testing.T) {
	log := NewLogPanelModel(3)
	for i := 0; i < 5; i++ {
		log.Append(engine.Event{Type: engine.EventNodeCompleted, NodeID: "n", Timestamp: time.Now()})
	}
	if log.Len() != 3 {
		t.Errorf("log len = %d, want 3", log.Len())
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{12 * time.Second, "12s"},
		{90 * time.Second, "1m30s"},
		{2*time.Minute + 30*time.Second, "2m30s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
