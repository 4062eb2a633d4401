// Package core provides the HTTP chassis for the quill API: a chi router
// usable from net/http (local and container) and from the Lambda adapter,
// plus the cross-cutting middleware, response helpers and validation that
// domain handlers share.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quill/internal/config"
)

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	// RecordRequest records one completed request. endpoint is the matched
	// route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server holds the router and the dependencies the chassis middleware needs.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// MetricsHandler, when set, is mounted at GET /metrics.
	MetricsHandler http.Handler

	// APIRouteRegistrars mount domain handlers under /api. Populated by
	// main.go so that core does not import handler packages.
	APIRouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer validates its dependencies and prepares an empty router.
// The caller mounts routes with MountRoutes after filling the registrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Shutdown runs the registered shutdown hooks in order, stopping at the
// first failure.
func (s *Server) Shutdown(ctx context.Context, hooks ...func(context.Context) error) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			s.Logger.ErrorContext(ctx, "shutdown hook failed", "error", err)
			return fmt.Errorf("shutting down: %w", err)
		}
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
