// Package server wires configuration into the processing services and
// runs the HTTP API with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mhoffmann/blackout/internal/alert"
	"github.com/mhoffmann/blackout/internal/api"
	"github.com/mhoffmann/blackout/internal/config"
	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/jobs"
	"github.com/mhoffmann/blackout/internal/locate"
	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/pipeline"
	"github.com/mhoffmann/blackout/internal/providers"
	"github.com/mhoffmann/blackout/internal/redact"
	"github.com/mhoffmann/blackout/internal/svcctx"
)

// Server is the main HTTP server with its processing services.
type Server struct {
	httpServer *http.Server
	store      *jobs.Store
	configMgr  *config.Manager
	logger     *slog.Logger

	api      *api.Server
	stack    *Stack
	services *svcctx.Services

	cleanupDone chan struct{}

	mu      sync.RWMutex
	running bool
}

// Config holds server construction settings.
type Config struct {
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

// New builds the full service stack from configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := cfg.ConfigManager.Get()

	stack, err := BuildServices(c, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:       stack.Store,
		configMgr:   cfg.ConfigManager,
		logger:      logger,
		stack:       stack,
		cleanupDone: make(chan struct{}),
	}
	s.services = &svcctx.Services{
		Logger:       logger,
		JobStore:     stack.Store,
		Orchestrator: stack.Orchestrator,
	}

	defaults := findings.ParsePreferences(c.Detection.Categories, findings.DefaultPreferences(), logger)
	s.api = api.NewServer(stack.Store, stack.Orchestrator, defaults, logger)

	// Config edits reach the running services through the manager's
	// change notifications.
	cfg.ConfigManager.OnChange(s.applyConfig)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port)),
		Handler:      s.withServices(s.api),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// applyConfig pushes the tunable parts of a reloaded config into the
// running services. Structural settings (listen address, model wiring,
// worker count) still require a restart.
func (s *Server) applyConfig(c *config.Config) {
	defaults := findings.ParsePreferences(c.Detection.Categories, findings.DefaultPreferences(), s.logger)
	s.api.SetDefaultPreferences(defaults)
	s.stack.Extractor.SetConfidenceThreshold(c.Detection.ConfidenceThreshold)
	if err := s.stack.Redactor.SetFillColor(c.Redaction.FillColor); err != nil {
		s.logger.Warn("keeping previous redaction fill", "error", err)
	}
	s.logger.Info("configuration reloaded",
		"confidence_threshold", c.Detection.ConfidenceThreshold,
		"enabled_categories", len(defaults.Enabled()))
}

// Stack bundles the processing services built from one config snapshot.
// The extractor and redactor are exposed so config reloads can adjust
// them in place.
type Stack struct {
	Orchestrator *pipeline.Orchestrator
	Store        *jobs.Store
	Extractor    *findings.Extractor
	Redactor     *redact.Applicator
}

// BuildServices constructs the processing stack for a config. Shared with
// the one-shot CLI path.
func BuildServices(c *config.Config, logger *slog.Logger) (*Stack, error) {
	mistral := providers.NewMistralClient(providers.MistralConfig{
		APIKey:      config.ResolveEnvVars(c.Mistral.APIKey),
		BaseURL:     c.Mistral.BaseURL,
		Model:       c.Mistral.Model,
		VisionModel: c.Mistral.VisionModel,
		Timeout:     time.Duration(c.Mistral.TimeoutSeconds) * time.Second,
	})

	var notifier alert.Notifier
	if c.Alert.Enabled {
		notifier = alert.NewSMTPNotifier(alert.SMTPConfig{
			Host:       c.Alert.SMTPHost,
			Port:       c.Alert.SMTPPort,
			User:       c.Alert.SMTPUser,
			Password:   config.ResolveEnvVars(c.Alert.SMTPPassword),
			AdminEmail: c.Alert.AdminEmail,
		})
	} else {
		notifier = &alert.LogNotifier{Logger: logger}
	}

	extractor := findings.NewExtractor(mistral, notifier, logger, findings.ExtractorConfig{
		Model:               c.Mistral.Model,
		ConfidenceThreshold: c.Detection.ConfidenceThreshold,
		MaxAttempts:         uint(c.Retry.MaxAttempts),
		InitialWait:         time.Duration(c.Retry.InitialWaitSeconds) * time.Second,
		MaxWait:             time.Duration(c.Retry.MaxWaitSeconds) * time.Second,
	})

	renderer := ocr.NewPdftoppmRenderer(c.OCR.Zoom)
	adapter := ocr.NewAdapter(renderer, ocr.NewTesseractEngine(), c.OCR.Languages)

	redactor, err := redact.New(renderer, c.Redaction.FillColor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build redactor: %w", err)
	}

	var vision providers.VisionClient
	if c.Mistral.VisionEnabled {
		vision = mistral
	}

	processor := pipeline.NewPageProcessor(adapter, extractor, locate.New(logger), redactor, vision, logger)
	orch := pipeline.NewOrchestrator(processor, notifier, c.Jobs.Workers, logger)

	ttl := time.Duration(c.Jobs.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Stack{
		Orchestrator: orch,
		Store:        jobs.NewStore(ttl),
		Extractor:    extractor,
		Redactor:     redactor,
	}, nil
}

// withServices enriches each request context with the service struct.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), s.services)))
	})
}

// Start runs the server until the context is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	interval := time.Duration(s.configMgr.Get().Jobs.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go s.store.RunCleanup(interval, s.cleanupDone)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")
	close(s.cleanupDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
