package core

import (
	"io"
	"log/slog"
	"testing"

	"quill/internal/config"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a Server with a minimal valid config.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	cfg.Security.CorsAllowedOrigins = []string{"*"}
	srv, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}
