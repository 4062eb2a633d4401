package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is one subsystem health check.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently and answers 200 when all pass,
// 503 when any fails, panics, or misses the deadline.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	// One slot per probe; a nil slot after the deadline means it never returned.
	results := make([]chan error, len(s.HealthProbes))
	var g errgroup.Group
	for i, probe := range s.HealthProbes {
		results[i] = make(chan error, 1)
		g.Go(func() error {
			results[i] <- runProbe(ctx, probe)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	resp := healthResponse{
		Status:     "healthy",
		Components: make(map[string]componentStatus, len(s.HealthProbes)),
	}
	for i, probe := range s.HealthProbes {
		status := componentStatus{Status: "healthy"}
		select {
		case err := <-results[i]:
			if err != nil {
				status = componentStatus{Status: "unhealthy", Message: err.Error()}
			}
		default:
			status = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		}
		if status.Status != "healthy" {
			resp.Status = "unhealthy"
		}
		resp.Components[probe.Name()] = status
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	JSON(w, r, code, resp)
}

func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return p.Check(ctx)
}
