// ABOUTME: CLI entrypoint for the flume pipeline runner with run, validate, watch, and server modes.
// ABOUTME: Wires together the engine, block catalog, memory store, run store, TUI, and signal handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flumehq/flume/blocks"
	"github.com/flumehq/flume/engine"
	"github.com/flumehq/flume/memory"
	"github.com/flumehq/flume/pipeline"
	"github.com/flumehq/flume/server"
	"github.com/flumehq/flume/store"
	"github.com/flumehq/flume/tui"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	serverMode   bool
	port         int
	validateOnly bool
	watchMode    bool
	triggerJSON  string
	userID       string
	memPath      string
	dataDir      string
	maxParallel  int
	verbose      bool
	showVersion  bool
	pipelineFile string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("flume %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("flume", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.IntVar(&cfg.port, "port", 3586, "Server port (default: 3586)")
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Validate pipeline without executing")
	fs.BoolVar(&cfg.watchMode, "watch", false, "Run with interactive terminal UI")
	fs.StringVar(&cfg.triggerJSON, "trigger", "", "Trigger payload as a JSON object")
	fs.StringVar(&cfg.userID, "user", "", "User id to load memory and profile for")
	fs.StringVar(&cfg.memPath, "mem", "", "SQLite memory database path")
	fs.StringVar(&cfg.dataDir, "data", "", "Data directory for run logs and the run index")
	fs.IntVar(&cfg.maxParallel, "max-parallel", 0, "Max concurrent node executions (0 = unlimited)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Echo engine events to stderr")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.pipelineFile = fs.Arg(0)
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config) int {
	if cfg.serverMode {
		return runServer(cfg)
	}

	if cfg.pipelineFile == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	if cfg.validateOnly {
		return validatePipeline(cfg)
	}

	if cfg.watchMode {
		return runPipelineWithTUI(cfg)
	}

	return runPipeline(cfg)
}

// loadDefinition reads and validates the pipeline file.
func loadDefinition(path string) (*pipeline.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := pipeline.Parse(data)
	if err != nil {
		return nil, err
	}
	if _, err := pipeline.ValidateOrError(def); err != nil {
		return nil, err
	}
	return def, nil
}

// validatePipeline parses the pipeline file and reports diagnostics.
func validatePipeline(cfg config) int {
	data, err := os.ReadFile(cfg.pipelineFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	def, err := pipeline.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	diags := pipeline.Validate(def)
	for _, d := range diags {
		if d.NodeID != "" {
			fmt.Fprintf(os.Stderr, "%s [%s] %s: %s\n", d.Severity, d.NodeID, d.Rule, d.Message)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", d.Severity, d.Rule, d.Message)
		}
	}
	for _, d := range diags {
		if d.Severity == pipeline.SeverityError {
			return 1
		}
	}

	fmt.Printf("Pipeline %q is valid (%d nodes, %d edges).\n", def.ID, len(def.Nodes), len(def.Edges))
	return 0
}

// runtime bundles the collaborators built from CLI flags.
type runtime struct {
	engine *engine.Engine
	sink   *store.Sink
	index  *store.RunIndex
	mem    *memory.SQLiteStore
}

// close releases the stores opened for this invocation.
func (rt *runtime) close() {
	if rt.sink != nil {
		_ = rt.sink.Close()
	}
	if rt.index != nil {
		_ = rt.index.Close()
	}
	if rt.mem != nil {
		_ = rt.mem.Close()
	}
}

// buildRuntime opens the stores requested via flags and assembles the engine.
// extraHandler, if non-nil, receives every engine event alongside the sink.
func buildRuntime(cfg config, extraHandler func(engine.Event)) (*runtime, error) {
	rt := &runtime{}

	if cfg.dataDir != "" {
		sink, err := store.NewSink(cfg.dataDir)
		if err != nil {
			return nil, fmt.Errorf("open event sink: %w", err)
		}
		rt.sink = sink

		index, err := store.OpenRunIndex(filepath.Join(cfg.dataDir, "runs.db"))
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open run index: %w", err)
		}
		rt.index = index
	}

	engineCfg := engine.Config{
		Registry:    blocks.DefaultRegistry(),
		MaxParallel: cfg.maxParallel,
	}

	if cfg.memPath != "" {
		mem, err := memory.OpenSQLite(cfg.memPath)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		rt.mem = mem
		engineCfg.Memory = mem
	}

	engineCfg.EventHandler = func(evt engine.Event) {
		if rt.sink != nil {
			rt.sink.HandleEvent(evt)
		}
		if extraHandler != nil {
			extraHandler(evt)
		}
	}

	rt.engine = engine.New(engineCfg)
	return rt, nil
}

// parseTrigger decodes the -trigger flag into a map.
func parseTrigger(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var trigger map[string]any
	if err := json.Unmarshal([]byte(raw), &trigger); err != nil {
		return nil, fmt.Errorf("parse -trigger: %w", err)
	}
	return trigger, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// runPipeline executes the pipeline file through the engine and prints a summary.
func runPipeline(cfg config) int {
	def, err := loadDefinition(cfg.pipelineFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	trigger, err := parseTrigger(cfg.triggerJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	var extra func(engine.Event)
	if cfg.verbose {
		extra = verboseEventHandler
	}

	rt, err := buildRuntime(cfg, extra)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer rt.close()

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := rt.engine.Run(ctx, def.Graph(), trigger, cfg.userID)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 1
	}

	if rt.index != nil {
		if err := rt.index.SaveResult(result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not persist run: %v\n", err)
		}
	}

	fmt.Println(renderSummary(result))

	if result.Status != engine.RunCompleted {
		return 1
	}
	return 0
}

// runPipelineWithTUI executes the pipeline through the Bubble Tea dashboard,
// with the node status board and live event log.
func runPipelineWithTUI(cfg config) int {
	def, err := loadDefinition(cfg.pipelineFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	trigger, err := parseTrigger(cfg.triggerJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Engine events reach the program via the bridge; the program is created
	// after the runtime, so route through a closure.
	var p *tea.Program
	bridge := tui.NewEventBridge(func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	})

	rt, err := buildRuntime(cfg, bridge.HandleEvent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer rt.close()

	// Quitting the TUI cancels the run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewAppModel(ctx, rt.engine, def.Graph(), trigger, cfg.userID)
	p = tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runServer starts the HTTP API, preloading the pipeline file if one was given.
func runServer(cfg config) int {
	rt, err := buildRuntime(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer rt.close()

	srv := server.NewServer(rt.engine, rt.index, rt.sink)

	if cfg.pipelineFile != "" {
		def, err := loadDefinition(cfg.pipelineFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		srv.RegisterPipeline(def)
		fmt.Printf("Preloaded pipeline %q\n", def.ID)
	}

	addr := fmt.Sprintf(":%d", cfg.port)
	fmt.Printf("flume %s listening on %s\n", version, addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// verboseEventHandler echoes engine events to stderr.
func verboseEventHandler(evt engine.Event) {
	if evt.NodeID != "" {
		fmt.Fprintf(os.Stderr, "[%s] %s %s\n", evt.Timestamp.Format("15:04:05"), evt.Type, evt.NodeID)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s\n", evt.Timestamp.Format("15:04:05"), evt.Type)
}
