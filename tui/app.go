// ABOUTME: Top-level Bubble Tea AppModel that orchestrates the TUI panels into a unified layout.
// ABOUTME: Implements tea.Model (Init, Update, View) and routes engine events to the board, log, and status bar.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flumehq/flume/engine"
)

// AppModel is the top-level Bubble Tea model that composes the node board,
// event log, and status bar, and routes messages between them.
type AppModel struct {
	board     BoardModel
	log       LogPanelModel
	statusBar StatusBarModel

	engine  *engine.Engine
	graph   *engine.Graph
	trigger map[string]any
	userID  string
	ctx     context.Context // cancellation context for the run

	done      bool  // run finished
	err       error // run error (if any)
	completed int   // count of completed nodes
	width     int
	height    int
}

// NewAppModel creates an AppModel with all sub-models initialized from the given graph.
func NewAppModel(ctx context.Context, e *engine.Engine, graph *engine.Graph, trigger map[string]any, userID string) AppModel {
	totalNodes := 0
	pipelineID := ""
	if graph != nil {
		totalNodes = len(graph.Nodes)
		pipelineID = graph.PipelineID
	}

	return AppModel{
		board:     NewBoardModel(graph),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(pipelineID, totalNodes),
		engine:    e,
		graph:     graph,
		trigger:   trigger,
		userID:    userID,
		ctx:       ctx,
	}
}

// Init implements tea.Model. Returns a batch of initial commands to start the
// run and begin the tick loop.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		RunPipelineCmd(m.ctx, m.engine, m.graph, m.trigger, m.userID),
		TickCmd(100*time.Millisecond),
	)
}

// Update implements tea.Model. Routes incoming messages to the appropriate
// sub-panel and returns the updated model with any follow-up commands.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EngineEventMsg:
		return m.handleEngineEvent(msg)

	case RunResultMsg:
		m.done = true
		m.err = msg.Err
		return m, nil

	case TickMsg:
		m.board.AdvanceSpinner()
		if m.done {
			return m, nil
		}
		return m, TickCmd(100 * time.Millisecond)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model. Renders the full TUI layout.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Minimum terminal size guard to prevent layout overflow
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	statusBarHeight := 1
	boardHeight := len(m.board.order) + 3
	logHeight := m.height - statusBarHeight - boardHeight
	if logHeight < 3 {
		logHeight = 3
	}

	m.board.SetWidth(m.width)
	m.log.SetSize(m.width, logHeight)
	m.statusBar.SetWidth(m.width)

	var statusView string
	if m.done {
		if m.err != nil {
			statusView = m.statusBar.View() + " " + FailedStyle.Render(fmt.Sprintf("FAILED: %v", m.err))
		} else if m.board.CountByStatus(engine.StatusFailed) > 0 {
			statusView = m.statusBar.View() + " " + FailedStyle.Render("FAILED")
		} else {
			statusView = m.statusBar.View() + " " + CompletedStyle.Render("DONE")
		}
	} else {
		statusView = m.statusBar.View()
	}

	var b strings.Builder
	b.WriteString(m.board.View())
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	b.WriteString(statusView)

	return b.String()
}

// handleEngineEvent routes engine lifecycle events to the appropriate sub-panels.
func (m AppModel) handleEngineEvent(msg EngineEventMsg) (tea.Model, tea.Cmd) {
	evt := msg.Event

	// Always append to the log panel
	m.log.Append(evt)

	switch evt.Type {
	case engine.EventRunStarted:
		m.statusBar.Start(evt.RunID)

	case engine.EventNodeStarted:
		m.board.SetNodeStatus(evt.NodeID, engine.StatusRunning)

	case engine.EventNodeCompleted:
		m.board.SetNodeStatus(evt.NodeID, engine.StatusCompleted)
		m.completed++
		m.statusBar.SetCompleted(m.completed)

	case engine.EventNodeFailed:
		m.board.SetNodeStatus(evt.NodeID, engine.StatusFailed)

	case engine.EventNodeSkipped:
		m.board.SetNodeStatus(evt.NodeID, engine.StatusSkipped)
	}

	return m, nil
}
