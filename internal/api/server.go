// Package api exposes document anonymization over HTTP: submit a PDF,
// poll job progress, fetch the redacted result.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/jobs"
	"github.com/mhoffmann/blackout/internal/pipeline"
)

// maxUploadBytes caps uploaded document size at 50 MB.
const maxUploadBytes = 50 << 20

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	store        *jobs.Store
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger

	// Default preferences follow config hot reload.
	mu           sync.RWMutex
	defaultPrefs findings.Preferences
}

// NewServer creates and configures the HTTP server.
func NewServer(store *jobs.Store, orch *pipeline.Orchestrator, defaultPrefs findings.Preferences, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:        store,
		orchestrator: orch,
		defaultPrefs: defaultPrefs,
		log:          log.With("component", "api"),
	}
	s.setupRoutes()
	return s
}

// DefaultPreferences returns a copy of the server-wide category defaults.
func (s *Server) DefaultPreferences() findings.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs := make(findings.Preferences, len(s.defaultPrefs))
	for c, enabled := range s.defaultPrefs {
		prefs[c] = enabled
	}
	return prefs
}

// SetDefaultPreferences replaces the server-wide category defaults.
// In-flight requests keep the preferences they started with.
func (s *Server) SetDefaultPreferences(prefs findings.Preferences) {
	s.mu.Lock()
	s.defaultPrefs = prefs
	s.mu.Unlock()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Post("/api/process", s.handleProcess)
	r.Get("/api/status/{jobID}", s.handleStatus)
	r.Get("/api/result/{jobID}", s.handleResult)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
