// ABOUTME: Tests for the flume CLI entrypoint covering flag parsing, validation,
// ABOUTME: pipeline execution, trigger decoding, and the summary renderer.
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flumehq/flume/engine"
)

// writeTempPipeline creates a temporary pipeline file with the given content
// and returns its path. The file is cleaned up when the test finishes.
func writeTempPipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
id: alerts
nodes:
  - id: n1
    block_id: threshold
    inputs:
      value: 42
      operator: ">"
      threshold: 10
  - id: n2
    block_id: notify
    inputs:
      body: "passed: {{n1.passed}}"
edges:
  - from: n1
    to: n2
`

const invalidYAML = `
id: alerts
nodes:
  - id: n1
    block_id: threshold
edges:
  - from: n1
    to: ghost
`

// --- parseFlags tests ---

func TestParseFlagsDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"flume", "pipeline.yaml"}
	cfg := parseFlags()

	if cfg.serverMode {
		t.Error("expected serverMode=false by default")
	}
	if cfg.port != 3586 {
		t.Errorf("expected default port=3586, got %d", cfg.port)
	}
	if cfg.maxParallel != 0 {
		t.Errorf("expected default max-parallel=0, got %d", cfg.maxParallel)
	}
	if cfg.pipelineFile != "pipeline.yaml" {
		t.Errorf("pipelineFile = %q", cfg.pipelineFile)
	}
}

func TestParseFlagsAllSet(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"flume", "-watch", "-trigger", `{"a":1}`, "-user", "ada",
		"-mem", "mem.db", "-data", "./data", "-max-parallel", "4", "-verbose", "p.yaml"}
	cfg := parseFlags()

	if !cfg.watchMode || !cfg.verbose {
		t.Errorf("mode flags not parsed: %+v", cfg)
	}
	if cfg.triggerJSON != `{"a":1}` || cfg.userID != "ada" {
		t.Errorf("trigger/user = %q / %q", cfg.triggerJSON, cfg.userID)
	}
	if cfg.memPath != "mem.db" || cfg.dataDir != "./data" || cfg.maxParallel != 4 {
		t.Errorf("paths = %+v", cfg)
	}
	if cfg.pipelineFile != "p.yaml" {
		t.Errorf("pipelineFile = %q", cfg.pipelineFile)
	}
}

// --- validate mode ---

func TestValidateModeAcceptsValidPipeline(t *testing.T) {
	path := writeTempPipeline(t, validYAML)
	if code := validatePipeline(config{pipelineFile: path}); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestValidateModeRejectsInvalidPipeline(t *testing.T) {
	path := writeTempPipeline(t, invalidYAML)
	if code := validatePipeline(config{pipelineFile: path}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestValidateModeMissingFile(t *testing.T) {
	if code := validatePipeline(config{pipelineFile: "/nonexistent.yaml"}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

// --- run mode ---

func TestRunPipelineEndToEnd(t *testing.T) {
	path := writeTempPipeline(t, validYAML)
	dataDir := t.TempDir()

	code := runPipeline(config{
		pipelineFile: path,
		dataDir:      dataDir,
		memPath:      filepath.Join(t.TempDir(), "mem.db"),
	})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	// The run landed in the data dir: an index plus one event log.
	if _, err := os.Stat(filepath.Join(dataDir, "runs.db")); err != nil {
		t.Errorf("run index missing: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dataDir, "runs"))
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one run log dir, got %v (%v)", entries, err)
	}
}

func TestRunPipelineInvalidTrigger(t *testing.T) {
	path := writeTempPipeline(t, validYAML)
	if code := runPipeline(config{pipelineFile: path, triggerJSON: "{broken"}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestParseTrigger(t *testing.T) {
	trigger, err := parseTrigger(`{"value": 42, "source": "cron"}`)
	if err != nil {
		t.Fatalf("parseTrigger failed: %v", err)
	}
	if trigger["value"] != float64(42) || trigger["source"] != "cron" {
		t.Errorf("trigger = %v", trigger)
	}

	if trigger, err := parseTrigger(""); err != nil || trigger != nil {
		t.Errorf("empty trigger = %v, %v", trigger, err)
	}
}

// --- summary ---

func TestRenderSummary(t *testing.T) {
	now := time.Now()
	result := &engine.RunResult{
		RunID:      "r1",
		PipelineID: "alerts",
		Status:     engine.RunFailed,
		Log: []engine.StepRecord{
			{NodeID: "n1", BlockID: "threshold", Status: engine.StatusCompleted, Duration: 5 * time.Millisecond, At: now},
			{NodeID: "n2", BlockID: "notify", Status: engine.StatusFailed, Error: "boom", At: now},
			{NodeID: "n3", BlockID: "notify", Status: engine.StatusSkipped, Reason: "upstream failed", At: now},
		},
		Errors:     []engine.ErrorRecord{{NodeID: "n2", Message: "boom", At: now}},
		StartedAt:  now,
		FinishedAt: now.Add(20 * time.Millisecond),
	}

	out := renderSummary(result)
	for _, want := range []string{"Run r1 (alerts)", "n1", "n2", "boom", "upstream failed",
		"1 completed, 1 failed, 1 skipped", "FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
