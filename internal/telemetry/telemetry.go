// Package telemetry records verification, dispatch and request metrics.
// Prometheus serves /metrics; CloudWatch carries the alerting signals
// (pipeline defects, failed dispatches, rejected signatures) when enabled.
package telemetry

import (
	"context"
	"time"
)

// Recorder is every metric the API emits. Consumers declare the subset they
// need; a Recorder satisfies all of them.
type Recorder interface {
	RecordVerification(ctx context.Context, endpoint, outcome string)
	RecordPipelineDefect(ctx context.Context, endpoint string)
	RecordDispatch(ctx context.Context, eventType, result string)
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Multi fans every call out to each recorder in order.
type Multi []Recorder

var _ Recorder = Multi(nil)

func (m Multi) RecordVerification(ctx context.Context, endpoint, outcome string) {
	for _, r := range m {
		r.RecordVerification(ctx, endpoint, outcome)
	}
}

func (m Multi) RecordPipelineDefect(ctx context.Context, endpoint string) {
	for _, r := range m {
		r.RecordPipelineDefect(ctx, endpoint)
	}
}

func (m Multi) RecordDispatch(ctx context.Context, eventType, result string) {
	for _, r := range m {
		r.RecordDispatch(ctx, eventType, result)
	}
}

func (m Multi) RecordRequest(method, endpoint, status string, duration time.Duration) {
	for _, r := range m {
		r.RecordRequest(method, endpoint, status, duration)
	}
}
