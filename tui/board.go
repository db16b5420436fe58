// ABOUTME: Node status board panel: one line per pipeline node with a status icon.
// ABOUTME: Running nodes show an animated spinner frame advanced by the app tick loop.
package tui

import (
	"fmt"
	"strings"

	"github.com/flumehq/flume/engine"
)

// BoardModel renders every node of the pipeline with its current status,
// in definition order.
type BoardModel struct {
	order    []string
	blockIDs map[string]string
	statuses map[string]engine.NodeStatus

	spinnerFrame int
	width        int
}

// NewBoardModel creates a board for the given graph. A nil graph yields an
// empty board.
func NewBoardModel(g *engine.Graph) BoardModel {
	m := BoardModel{
		blockIDs: make(map[string]string),
		statuses: make(map[string]engine.NodeStatus),
	}
	if g == nil {
		return m
	}
	for _, n := range g.Nodes {
		m.order = append(m.order, n.ID)
		m.blockIDs[n.ID] = n.BlockID
		m.statuses[n.ID] = engine.StatusPending
	}
	return m
}

// SetNodeStatus updates a node's display status. Unknown ids are ignored.
func (m *BoardModel) SetNodeStatus(nodeID string, status engine.NodeStatus) {
	if _, ok := m.statuses[nodeID]; ok {
		m.statuses[nodeID] = status
	}
}

// Status returns the current display status of a node.
func (m BoardModel) Status(nodeID string) engine.NodeStatus {
	return m.statuses[nodeID]
}

// CountByStatus returns how many nodes currently show the given status.
func (m BoardModel) CountByStatus(status engine.NodeStatus) int {
	n := 0
	for _, s := range m.statuses {
		if s == status {
			n++
		}
	}
	return n
}

// AdvanceSpinner moves the running-node spinner to its next frame.
func (m *BoardModel) AdvanceSpinner() {
	m.spinnerFrame = (m.spinnerFrame + 1) % len(SpinnerFrames)
}

// SetWidth sets the panel width for rendering.
func (m *BoardModel) SetWidth(w int) {
	m.width = w
}

// View renders the board as one line per node.
func (m BoardModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("NODES"))
	b.WriteString("\n")

	for _, id := range m.order {
		status := m.statuses[id]

		marker := StatusIcon(status)
		if status == engine.StatusRunning {
			marker = "[" + SpinnerFrames[m.spinnerFrame] + "]"
		}

		line := fmt.Sprintf("%s %s (%s)", marker, id, m.blockIDs[id])
		b.WriteString(StyleForStatus(status).Render(line))
		b.WriteString("\n")
	}

	return BorderStyle.Width(m.width - 2).Render(strings.TrimRight(b.String(), "\n"))
}
