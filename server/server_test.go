// ABOUTME: Integration tests for the JSON API using httptest against a real engine and stores.
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flumehq/flume/blocks"
	"github.com/flumehq/flume/engine"
	"github.com/flumehq/flume/store"
)

const pipelineJSON = `{
  "id": "alerts",
  "nodes": [
    {"id": "n1", "block_id": "threshold", "inputs": {"value": 42, "operator": ">", "threshold": 10}},
    {"id": "n2", "block_id": "notify", "inputs": {"body": "delivery {{trigger.delivery_id}}: {{n1.passed}}"}}
  ],
  "edges": [{"from": "n1", "to": "n2"}]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	sink, err := store.NewSink(dir)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	index, err := store.OpenRunIndex(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("OpenRunIndex failed: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	e := engine.New(engine.Config{
		Registry:     blocks.DefaultRegistry(),
		EventHandler: sink.HandleEvent,
	})
	return NewServer(e, index, sink)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: bad response JSON: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestRegisterAndGetPipeline(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/pipelines", pipelineJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %v", rec.Code, body)
	}
	if body["id"] != "alerts" {
		t.Errorf("register response = %v", body)
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/pipelines/alerts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	if body["id"] != "alerts" {
		t.Errorf("definition = %v", body)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/pipelines/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown pipeline: status %d", rec.Code)
	}
}

func TestRegisterRejectsInvalidPipeline(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodPost, "/api/pipelines", "not json{")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", rec.Code)
	}

	// Dangling edge endpoint fails validation.
	bad := `{"id": "bad", "nodes": [{"id": "a", "block_id": "threshold"}],
		"edges": [{"from": "a", "to": "ghost"}]}`
	rec, body := doJSON(t, s, http.MethodPost, "/api/pipelines", bad)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid pipeline: status %d", rec.Code)
	}
	if body["diagnostics"] == nil {
		t.Errorf("expected diagnostics in response: %v", body)
	}
}

func TestTriggerRunReturnsResult(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/pipelines", pipelineJSON)

	rec, body := doJSON(t, s, http.MethodPost, "/api/pipelines/alerts/runs", `{"trigger": {"source": "test"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger: status %d, body %v", rec.Code, body)
	}

	runID, _ := body["run_id"].(string)
	if runID == "" {
		t.Fatalf("missing run_id: %v", body)
	}
	if body["status"] != "completed" {
		t.Errorf("status = %v (%v)", body["status"], body["errors"])
	}

	results := body["results"].(map[string]any)
	n2 := results["n2"].(map[string]any)
	notifyBody, _ := n2["body"].(string)
	// delivery_id is a fresh UUID injected into the trigger payload.
	if !strings.HasPrefix(notifyBody, "delivery ") || !strings.HasSuffix(notifyBody, ": true") {
		t.Errorf("notify body = %q", notifyBody)
	}
	deliveryID := strings.TrimSuffix(strings.TrimPrefix(notifyBody, "delivery "), ": true")
	if len(deliveryID) != 36 {
		t.Errorf("delivery id = %q, want UUID", deliveryID)
	}
}

func TestTriggerUnknownPipeline(t *testing.T) {
	s := newTestServer(t)
	rec, _ := doJSON(t, s, http.MethodPost, "/api/pipelines/ghost/runs", "{}")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}

func TestRunPersistenceAndEvents(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/pipelines", pipelineJSON)

	_, body := doJSON(t, s, http.MethodPost, "/api/pipelines/alerts/runs", "")
	runID := body["run_id"].(string)

	// Result is fetchable from the index.
	rec, body := doJSON(t, s, http.MethodGet, "/api/runs/"+runID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: status %d", rec.Code)
	}
	if body["run_id"] != runID || body["pipeline_id"] != "alerts" {
		t.Errorf("stored result = %v", body)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/runs/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown run: status %d", rec.Code)
	}

	// The run shows up in the listing.
	rec, body = doJSON(t, s, http.MethodGet, "/api/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list runs: status %d", rec.Code)
	}
	runs := body["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("runs = %v", runs)
	}

	// Full event log, bracketed by run lifecycle events.
	rec, body = doJSON(t, s, http.MethodGet, "/api/runs/"+runID+"/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d", rec.Code)
	}
	events := body["events"].([]any)
	if len(events) < 4 {
		t.Fatalf("expected at least 4 events, got %d", len(events))
	}
	first := events[0].(map[string]any)
	last := events[len(events)-1].(map[string]any)
	if first["type"] != "run.started" || last["type"] != "run.completed" {
		t.Errorf("event bracket = %v .. %v", first["type"], last["type"])
	}

	// Tail via ?n=.
	_, body = doJSON(t, s, http.MethodGet, "/api/runs/"+runID+"/events?n=1", "")
	if tail := body["events"].([]any); len(tail) != 1 {
		t.Errorf("tail = %v", tail)
	}
}
