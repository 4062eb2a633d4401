package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quill/internal/types"
)

// defaultRequestTimeout applies when the config does not set one.
const defaultRequestTimeout = 29 * time.Second

// redactedHeaders are masked in request logs. The webhook signature headers
// are listed so a captured signature never lands in log storage.
var redactedHeaders = []string{
	"Authorization",
	"Cookie",
	"Creem-Signature",
	"X-Creem-Signature",
}

// MountRoutes registers the global middleware chain, the /api group and the
// top-level operational routes.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/api", func(r chi.Router) {
		for _, registrar := range s.APIRouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
	if s.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil))
	})
}

// registerGlobalMiddleware applies middleware in strict order.
//
//  1. Recoverer       - outermost, catches panics from everything below.
//  2. ContextTimeout  - soft deadline before the platform's hard timeout.
//  3. RequestID       - correlation ID for logs.
//  4. SecurityHeaders - present on every response, errors included.
//  5. RequestLogger   - structured access log with redacted headers.
//  6. CORS            - the mobile web build calls /api/verify-payment.
//  7. Metrics         - latency and count per route pattern.
//
// Body-consuming middleware (the raw-body capturer) is per-route, never global.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, redactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses an incoming X-Request-Id or generates a UUID,
// stores it via types.WithRequestID and echoes it as a response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
