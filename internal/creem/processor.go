package creem

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Default limits for detached event processing.
const (
	DefaultProcessTimeout = 30 * time.Second
	DefaultMaxInFlight    = 64
)

// ErrProcessorClosed is returned by Submit after Shutdown has begun.
var ErrProcessorClosed = errors.New("creem: processor is shutting down")

// EventDispatcher is the subset of Dispatcher the processor needs.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// Processor runs dispatches off the request goroutine so the webhook can be
// acknowledged before any handler work starts.
//
// Each dispatch gets its own goroutine with a context detached from the
// request's cancellation and bounded by the processing timeout. At most
// maxInFlight dispatches run at once; further submissions wait for a slot
// on their own goroutine, so Submit never blocks the response.
type Processor struct {
	dispatcher EventDispatcher
	sem        *semaphore.Weighted
	timeout    time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ProcessorConfig holds the tunables for a Processor.
type ProcessorConfig struct {
	Timeout     time.Duration
	MaxInFlight int64
}

// NewProcessor creates a Processor. Zero config values fall back to the defaults.
func NewProcessor(dispatcher EventDispatcher, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProcessTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &Processor{
		dispatcher: dispatcher,
		sem:        semaphore.NewWeighted(cfg.MaxInFlight),
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Submit schedules the event for dispatch and returns immediately.
// Values carried by ctx (request ID) are kept; its cancellation is not.
func (p *Processor) Submit(ctx context.Context, event Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProcessorClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(context.WithoutCancel(ctx), event)
	return nil
}

func (p *Processor) run(ctx context.Context, event Event) {
	defer p.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	meta := event.Meta()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.logger.ErrorContext(ctx, "webhook event dropped waiting for a processing slot",
			"event_id", meta.ID,
			"event_type", string(meta.Type),
			"error", err,
		)
		return
	}
	defer p.sem.Release(1)

	// Dispatcher already logs failures with the event type; the error stops here.
	_ = p.dispatcher.Dispatch(ctx, event)
}

// Shutdown stops accepting events and waits for in-flight dispatches to
// finish or for ctx to expire.
func (p *Processor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return p.Drain(ctx)
}

// Drain waits for the dispatches submitted so far without closing the
// processor. The Lambda runtime freezes the process between invocations,
// so the Lambda path drains after each response is recorded.
func (p *Processor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name identifies the processor as a health probe.
func (p *Processor) Name() string { return "webhook_processor" }

// Check fails once Shutdown has begun, so load balancers drain the instance.
func (p *Processor) Check(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProcessorClosed
	}
	return nil
}
