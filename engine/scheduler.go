// ABOUTME: Scheduler that walks the dependency DAG, launching ready nodes concurrently and driving the run to completion.
// ABOUTME: Node failures poison only their dependent subtree; independent branches keep executing.
package engine

import (
	"context"
	"fmt"
	"time"
)

// MemoryStore is the long-term memory collaborator consumed by the engine.
// Load is called once at run start; Save is called once at finalize with the
// pending memory patch.
type MemoryStore interface {
	Load(ctx context.Context, userID string, keys []string) (user map[string]any, memory map[string]any, err error)
	Save(ctx context.Context, userID string, patch map[string]any, runID string) error
}

// Config holds the collaborators and limits for a pipeline engine.
type Config struct {
	Registry     *Registry   // block catalog; nil = empty registry
	Memory       MemoryStore // nil = runs execute with empty memory and user profile
	MaxParallel  int         // max concurrent node invocations; 0 = unlimited
	EventHandler func(Event) // optional lifecycle event callback
}

// Engine executes pipeline graphs. One Engine may serve many runs; each run
// owns its RunState exclusively.
type Engine struct {
	cfg Config
}

// New creates a pipeline engine with the given configuration.
func New(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	return &Engine{cfg: cfg}
}

// RunStatus is the overall status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunResult is the final state handed to the caller when a run terminates.
type RunResult struct {
	RunID       string                    `json:"run_id"`
	PipelineID  string                    `json:"pipeline_id"`
	Status      RunStatus                 `json:"status"`
	Results     map[string]map[string]any `json:"results"`
	Log         []StepRecord              `json:"log"`
	Errors      []ErrorRecord             `json:"errors"`
	MemoryPatch map[string]any            `json:"memory_patch,omitempty"`
	StartedAt   time.Time                 `json:"started_at"`
	FinishedAt  time.Time                 `json:"finished_at"`
}

// completion is the message a node goroutine sends back to the scheduler loop.
type completion struct {
	nodeID   string
	output   map[string]any
	err      error
	duration time.Duration
}

// run carries the per-run scheduling state. All fields except doneCh are
// touched only by the scheduler goroutine; node goroutines communicate
// exclusively through doneCh and the RunState.
type run struct {
	engine    *Engine
	ctx       context.Context
	runID     string
	dag       *DAG
	state     *RunState
	status    map[string]NodeStatus
	doneIn    map[string]int    // predecessors that reached a terminal state
	liveIn    map[string]int    // live incoming edges from completed predecessors
	blockedBy map[string]string // nearest upstream failed node, if any
	running   int
	cancelled bool
	doneCh    chan completion
	sem       chan struct{}
}

// Run executes the graph to completion against the given trigger payload.
// Graph-build and memory-load failures abort before any node executes and are
// returned as the error. Node-level failures do not produce an error here;
// they are recorded in the result, whose status is then RunFailed.
func (e *Engine) Run(ctx context.Context, graph *Graph, trigger map[string]any, userID string) (*RunResult, error) {
	dag, err := BuildDAG(graph)
	if err != nil {
		return nil, err
	}

	var user, memory map[string]any
	if e.cfg.Memory != nil && userID != "" {
		user, memory, err = e.cfg.Memory.Load(ctx, userID, graph.MemoryKeys)
		if err != nil {
			return nil, fmt.Errorf("load memory for user %q: %w", userID, err)
		}
	}

	r := &run{
		engine:    e,
		ctx:       ctx,
		runID:     NewRunID(),
		dag:       dag,
		state:     NewRunState(trigger, memory, user),
		status:    make(map[string]NodeStatus, dag.Len()),
		doneIn:    make(map[string]int),
		liveIn:    make(map[string]int),
		blockedBy: make(map[string]string),
		doneCh:    make(chan completion, dag.Len()),
	}
	if e.cfg.MaxParallel > 0 {
		r.sem = make(chan struct{}, e.cfg.MaxParallel)
	}
	for _, id := range dag.NodeIDs() {
		r.status[id] = StatusPending
	}

	startedAt := time.Now()
	e.emit(Event{Type: EventRunStarted, RunID: r.runID, PipelineID: graph.PipelineID, Timestamp: startedAt})

	for _, id := range dag.Roots() {
		r.launch(id)
	}

	for r.running > 0 {
		if r.cancelled {
			r.finish(<-r.doneCh)
			continue
		}
		select {
		case <-ctx.Done():
			r.cancelled = true
			r.state.AppendError(ErrorRecord{Message: "run cancelled: " + ctx.Err().Error(), At: time.Now()})
		case c := <-r.doneCh:
			r.finish(c)
		}
	}

	// Nodes never reached because launching stopped mid-run.
	if r.cancelled {
		for _, id := range dag.NodeIDs() {
			if !r.status[id].Terminal() {
				r.skip(id, "run cancelled", "")
			}
		}
	}

	result := &RunResult{
		RunID:       r.runID,
		PipelineID:  graph.PipelineID,
		Results:     r.state.Results(),
		MemoryPatch: r.state.MemoryPatch(),
		StartedAt:   startedAt,
	}

	if e.cfg.Memory != nil && userID != "" && len(result.MemoryPatch) > 0 && !r.cancelled {
		if err := e.cfg.Memory.Save(ctx, userID, result.MemoryPatch, r.runID); err != nil {
			r.state.AppendError(ErrorRecord{Message: "save memory: " + err.Error(), At: time.Now()})
		} else {
			e.emit(Event{Type: EventMemorySaved, RunID: r.runID, PipelineID: graph.PipelineID,
				Data: map[string]any{"keys": len(result.MemoryPatch)}, Timestamp: time.Now()})
		}
	}

	result.Log = r.state.Log()
	result.Errors = r.state.Errors()
	result.FinishedAt = time.Now()
	if len(result.Errors) == 0 {
		result.Status = RunCompleted
		e.emit(Event{Type: EventRunCompleted, RunID: r.runID, PipelineID: graph.PipelineID, Timestamp: result.FinishedAt})
	} else {
		result.Status = RunFailed
		e.emit(Event{Type: EventRunFailed, RunID: r.runID, PipelineID: graph.PipelineID,
			Data: map[string]any{"errors": len(result.Errors)}, Timestamp: result.FinishedAt})
	}

	return result, nil
}

// launch moves a node to RUNNING and starts its invocation goroutine. Inputs
// are resolved inside the goroutine, just-in-time, so they see the freshest
// state from already-completed predecessors.
func (r *run) launch(id string) {
	node := r.dag.Node(id)
	r.status[id] = StatusRunning
	r.running++
	r.engine.emit(Event{Type: EventNodeStarted, RunID: r.runID, NodeID: id,
		Data: map[string]any{"block_id": node.BlockID}, Timestamp: time.Now()})

	go func() {
		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}

		start := time.Now()
		inputs, _ := Resolve(node.Inputs, r.state).(map[string]any)
		if inputs == nil {
			inputs = map[string]any{}
		}
		output, err := r.engine.invokeBlock(r.ctx, node.ID, node.BlockID, inputs, node.Config, r.state)
		r.doneCh <- completion{nodeID: id, output: output, err: err, duration: time.Since(start)}
	}()
}

// finish processes one node completion on the scheduler goroutine: it records
// the outcome, computes live successor edges, and recomputes readiness for
// all direct successors.
func (r *run) finish(c completion) {
	r.running--
	node := r.dag.Node(c.nodeID)
	now := time.Now()

	if c.err != nil {
		r.status[c.nodeID] = StatusFailed
		r.state.AppendStep(StepRecord{
			NodeID: c.nodeID, BlockID: node.BlockID, Status: StatusFailed,
			Error: c.err.Error(), Duration: c.duration, At: now,
		})
		r.state.AppendError(ErrorRecord{NodeID: c.nodeID, BlockID: node.BlockID, Message: c.err.Error(), At: now})
		r.engine.emit(Event{Type: EventNodeFailed, RunID: r.runID, NodeID: c.nodeID,
			Data: map[string]any{"error": c.err.Error()}, Timestamp: now})
		r.advance(c.nodeID, nil, c.nodeID)
		return
	}

	r.status[c.nodeID] = StatusCompleted
	r.state.SetResult(c.nodeID, c.output)
	r.state.AppendStep(StepRecord{
		NodeID: c.nodeID, BlockID: node.BlockID, Status: StatusCompleted,
		Output: c.output, Duration: c.duration, At: now,
	})
	r.engine.emit(Event{Type: EventNodeCompleted, RunID: r.runID, NodeID: c.nodeID, Timestamp: now})

	live := LiveSuccessors(r.dag, c.nodeID, c.output)
	r.advance(c.nodeID, live, "")
}

// advance marks one incoming edge done on every successor of source and
// re-checks their readiness. live is nil when the source failed or was
// skipped, making none of its outgoing edges live. failedNode, when
// non-empty, poisons successors so the failed subtree is never scheduled.
func (r *run) advance(source string, live map[*Edge]bool, failedNode string) {
	for _, e := range r.dag.Successors(source) {
		r.doneIn[e.To]++
		if live != nil && live[e] {
			r.liveIn[e.To]++
		}
		if failedNode != "" {
			r.blockedBy[e.To] = failedNode
		}
		r.check(e.To)
	}
}

// check launches or skips a node once all of its predecessors are terminal.
func (r *run) check(id string) {
	if r.status[id] != StatusPending {
		return
	}
	if r.doneIn[id] < len(r.dag.Predecessors(id)) {
		return
	}

	switch {
	case r.blockedBy[id] != "":
		r.skip(id, "upstream node "+r.blockedBy[id]+" failed", r.blockedBy[id])
	case r.liveIn[id] == 0:
		r.skip(id, "no live incoming edge", "")
	case r.cancelled:
		r.skip(id, "run cancelled", "")
	default:
		r.launch(id)
	}
}

// skip marks a node SKIPPED and propagates the skip to its successors. A
// skipped node is never invoked and contributes no entry to results.
func (r *run) skip(id, reason, failedNode string) {
	node := r.dag.Node(id)
	r.status[id] = StatusSkipped
	now := time.Now()
	r.state.AppendStep(StepRecord{
		NodeID: id, BlockID: node.BlockID, Status: StatusSkipped, Reason: reason, At: now,
	})
	r.engine.emit(Event{Type: EventNodeSkipped, RunID: r.runID, NodeID: id,
		Data: map[string]any{"reason": reason}, Timestamp: now})
	r.advance(id, nil, failedNode)
}

// emit delivers an event to the configured handler, if any.
func (e *Engine) emit(evt Event) {
	if e.cfg.EventHandler != nil {
		e.cfg.EventHandler(evt)
	}
}
