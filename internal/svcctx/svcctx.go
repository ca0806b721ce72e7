// Package svcctx provides service context for dependency injection via
// context. It is separate from the API package to avoid import cycles
// with handlers.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/mhoffmann/blackout/internal/jobs"
	"github.com/mhoffmann/blackout/internal/pipeline"
)

// Services holds the core services that flow through context. Handlers
// extract what they need via the individual extractors.
type Services struct {
	Logger       *slog.Logger
	JobStore     *jobs.Store
	Orchestrator *pipeline.Orchestrator
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// JobStoreFrom extracts the job registry from context.
func JobStoreFrom(ctx context.Context) *jobs.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobStore
	}
	return nil
}

// OrchestratorFrom extracts the document orchestrator from context.
func OrchestratorFrom(ctx context.Context) *pipeline.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}
