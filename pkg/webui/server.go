// Package webui exposes the interview engine to browsers: a small REST API
// for starting sessions and reading results, plus a WebSocket per session
// that streams engine events out and carries host intents in.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview/pkg/interview"
	"interview/pkg/logx"
	"interview/pkg/metrics"
	"interview/pkg/persistence"
	"interview/pkg/speech"
)

// ControllerFactory builds a wired controller for a new session with the
// given target role. The devices argument is the session's browser speech
// bridge; production factories pass it straight through to the controller.
type ControllerFactory func(role string, devices speech.Devices) (*interview.Controller, error)

// Server is the web UI HTTP server.
type Server struct {
	factory   ControllerFactory
	store     *persistence.Store
	queries   *metrics.QueryService
	logger    *logx.Logger
	eventSink func(interview.Event)

	mu       sync.Mutex
	sessions map[string]*activeSession

	httpServer *http.Server
}

// NewServer creates a web UI server. The store may be nil; history endpoints
// then return 404.
func NewServer(factory ControllerFactory, store *persistence.Store) *Server {
	return &Server{
		factory:  factory,
		store:    store,
		logger:   logx.NewLogger("webui"),
		sessions: make(map[string]*activeSession),
	}
}

// SetQueryService enables the per-session metrics endpoint, backed by a
// Prometheus server that scrapes this process.
func (s *Server) SetQueryService(queries *metrics.QueryService) {
	s.queries = queries
}

// SetEventSink registers a callback invoked for every engine event across
// all sessions, in addition to websocket delivery. Used for the JSONL event
// log. Must be set before the first session starts.
func (s *Server) SetEventSink(sink func(interview.Event)) {
	s.eventSink = sink
}

// Handler returns the http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /api/sessions/{id}/transcript", s.handleGetTranscript)
	mux.HandleFunc("GET /api/sessions/{id}/metrics", s.handleGetSessionMetrics)
	mux.HandleFunc("/ws/{id}", s.handleWebSocket)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("🌐 Web UI listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and cancels all running sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, active := range s.sessions {
		active.cancel()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	return nil
}

type createSessionRequest struct {
	Role string `json:"role"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		http.Error(w, "role is required", http.StatusBadRequest)
		return
	}

	bridge := newSpeechBridge(s.logger)
	controller, err := s.factory(req.Role, bridge)
	if err != nil {
		s.logger.Error("Failed to build session: %v", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	active := s.launch(controller, bridge)
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: active.id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []persistence.SessionRecord{})
		return
	}
	records, err := s.store.ListSessions(r.Context(), 50)
	if err != nil {
		s.logger.Error("Failed to list sessions: %v", err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []persistence.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	record, err := s.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	transcript, err := s.store.GetTranscript(r.Context(), r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleGetSessionMetrics(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		http.NotFound(w, r)
		return
	}
	sessionMetrics, err := s.queries.GetSessionMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to query session metrics: %v", err)
		http.Error(w, "failed to query metrics", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, sessionMetrics)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
