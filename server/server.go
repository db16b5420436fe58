// ABOUTME: HTTP server struct with chi router over the pipeline engine and run store.
// ABOUTME: Configures all API routes and holds the in-memory pipeline registry.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/flumehq/flume/engine"
	"github.com/flumehq/flume/pipeline"
	"github.com/flumehq/flume/store"
)

// Server exposes the pipeline engine over a JSON API. Registered pipeline
// definitions live in memory; finished runs are persisted through the index.
type Server struct {
	router chi.Router
	engine *engine.Engine
	index  *store.RunIndex
	sink   *store.Sink

	mu        sync.Mutex
	pipelines map[string]*pipeline.Definition
}

// NewServer creates a Server with all routes configured. The engine should be
// constructed with the sink's HandleEvent as its event handler so the events
// endpoint has something to read. index and sink may be nil for engine-only
// deployments; the corresponding endpoints then return 503.
func NewServer(e *engine.Engine, index *store.RunIndex, sink *store.Sink) *Server {
	s := &Server{
		engine:    e,
		index:     index,
		sink:      sink,
		pipelines: make(map[string]*pipeline.Definition),
	}

	r := chi.NewRouter()

	r.Post("/api/pipelines", s.handleRegisterPipeline)
	r.Get("/api/pipelines", s.handleListPipelines)
	r.Get("/api/pipelines/{id}", s.handleGetPipeline)
	r.Post("/api/pipelines/{id}/runs", s.handleTriggerRun)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)
	r.Get("/api/runs/{id}/events", s.handleRunEvents)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterPipeline adds a definition to the registry outside the HTTP path,
// for CLI-driven server startup with preloaded pipelines.
func (s *Server) RegisterPipeline(def *pipeline.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[def.ID] = def
}

func (s *Server) getPipeline(id string) (*pipeline.Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.pipelines[id]
	return def, ok
}

// decodeJSONBody decodes a request body into v, capping it at 1MB.
func decodeJSONBody(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError returns a JSON error body in a consistent shape.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
