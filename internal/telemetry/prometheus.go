package telemetry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quill/internal/types"
)

// Prometheus records metrics on its own registry, served by Handler.
type Prometheus struct {
	registry *prometheus.Registry

	verifications *prometheus.CounterVec
	defects       *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors under namespace (lowercased) and
// registers them, with the Go and process collectors, on a fresh registry.
func NewPrometheus(namespace string) *Prometheus {
	ns := strings.ToLower(namespace)
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "signature_verifications_total", Help: "Signature verifications by endpoint and outcome."},
			[]string{"endpoint", "outcome"},
		),
		defects: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "pipeline_defects_total", Help: "Requests that reached a handler without the raw body captured."},
			[]string{"endpoint"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "webhook_dispatches_total", Help: "Webhook events dispatched by event type and result."},
			[]string{"event_type", "result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
	}

	p.registry.MustRegister(
		p.verifications,
		p.defects,
		p.dispatches,
		p.requests,
		p.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) RecordVerification(_ context.Context, endpoint, outcome string) {
	p.verifications.WithLabelValues(endpoint, outcome).Inc()
}

func (p *Prometheus) RecordPipelineDefect(_ context.Context, endpoint string) {
	p.defects.WithLabelValues(endpoint).Inc()
	p.verifications.WithLabelValues(endpoint, types.OutcomePipelineDefect).Inc()
}

func (p *Prometheus) RecordDispatch(_ context.Context, eventType, result string) {
	p.dispatches.WithLabelValues(eventType, result).Inc()
}

func (p *Prometheus) RecordRequest(method, endpoint, status string, duration time.Duration) {
	p.requests.WithLabelValues(method, endpoint, status).Inc()
	p.duration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}
