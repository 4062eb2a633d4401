// Package creem models the Creem payment provider's webhook events and
// redirect parameters, and routes verified events to a Handler.
package creem

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"quill/internal/types"
)

// DispatchMetrics records the result of each dispatched event.
// Defined here so the dispatcher does not depend on a telemetry backend.
type DispatchMetrics interface {
	RecordDispatch(ctx context.Context, eventType, result string)
}

// Dispatcher routes a parsed Event to exactly one Handler method.
//
// It does not judge whether a status transition is legal; the provider is
// the source of truth for lifecycle state. Handler errors and panics are
// logged with the event type and returned to the caller, who decides what
// to do with them. Nothing is retried.
type Dispatcher struct {
	handler Handler
	metrics DispatchMetrics
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(handler Handler, metrics DispatchMetrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}
}

// Dispatch invokes the handler method for the event's variant.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (err error) {
	meta := event.Meta()

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "webhook handler panicked",
				"event_id", meta.ID,
				"event_type", string(meta.Type),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("handler panic for %s: %v", meta.Type, r)
			d.record(ctx, meta.Type, types.DispatchFailed)
		}
	}()

	if err := event.dispatch(ctx, d.handler); err != nil {
		d.logger.ErrorContext(ctx, "webhook handler failed",
			"event_id", meta.ID,
			"event_type", string(meta.Type),
			"error", err,
		)
		d.record(ctx, meta.Type, types.DispatchFailed)
		return fmt.Errorf("handling %s: %w", meta.Type, err)
	}

	if _, ok := event.(*Unhandled); ok {
		d.logger.InfoContext(ctx, "unhandled webhook event type",
			"event_id", meta.ID,
			"event_type", string(meta.Type),
		)
		d.record(ctx, meta.Type, types.DispatchUnhandled)
		return nil
	}

	d.record(ctx, meta.Type, types.DispatchHandled)
	return nil
}

func (d *Dispatcher) record(ctx context.Context, eventType EventType, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDispatch(ctx, string(eventType), result)
}
