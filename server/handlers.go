// ABOUTME: HTTP handler methods for all API endpoints.
// ABOUTME: Covers pipeline registration, run triggering, and run/event retrieval.
package server

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flumehq/flume/pipeline"
)

// triggerRequest is the body of POST /api/pipelines/{id}/runs.
type triggerRequest struct {
	UserID  string         `json:"user_id,omitempty"`
	Trigger map[string]any `json:"trigger,omitempty"`
}

// handleRegisterPipeline validates and stores a pipeline definition.
// Enforces a 1MB body limit.
func (s *Server) handleRegisterPipeline(w http.ResponseWriter, r *http.Request) {
	const maxBodySize = 1 << 20
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	def, err := pipeline.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	diags, err := pipeline.ValidateOrError(def)
	if err != nil {
		msgs := make([]string, 0, len(diags))
		for _, d := range diags {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.Rule, d.Message))
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       err.Error(),
			"diagnostics": msgs,
		})
		return
	}

	s.mu.Lock()
	s.pipelines[def.ID] = def
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"id": def.ID})
}

// handleListPipelines returns registered pipeline ids, sorted.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pipelines))
	for id := range s.pipelines {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	writeJSON(w, http.StatusOK, map[string]any{"pipelines": ids})
}

// handleGetPipeline returns a registered definition as JSON.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, ok := s.getPipeline(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown pipeline %q", id))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// handleTriggerRun executes a registered pipeline synchronously and returns
// the full run result. Each delivery gets a fresh UUID so downstream blocks
// can deduplicate retried triggers.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, ok := s.getPipeline(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown pipeline %q", id))
		return
	}

	var req triggerRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	trigger := req.Trigger
	if trigger == nil {
		trigger = map[string]any{}
	}
	trigger["delivery_id"] = uuid.NewString()

	result, err := s.engine.Run(r.Context(), def.Graph(), trigger, req.UserID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if s.index != nil {
		if err := s.index.SaveResult(result); err != nil {
			writeError(w, http.StatusInternalServerError, "persist run: "+err.Error())
			return
		}
	}
	if s.sink != nil {
		_ = s.sink.CloseRun(result.RunID)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListRuns returns run summaries from the index, most recent first.
// ?n= caps the number returned.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.index.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns a finished run's result document.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	result, err := s.index.GetResult(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown run %q", id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRunEvents returns a run's event log. ?n= tails the last n events.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		writeError(w, http.StatusServiceUnavailable, "event sink not configured")
		return
	}

	id := chi.URLParam(r, "id")
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = parsed
	}

	events, err := s.sink.Tail(id, n)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no events for run %q", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
