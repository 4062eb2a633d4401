package creem

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/types"
)

// blockingDispatcher holds every dispatch until release is closed.
type blockingDispatcher struct {
	started chan string
	release chan struct{}
	running atomic.Int32
	peak    atomic.Int32
	ctxErr  chan error
}

func newBlockingDispatcher() *blockingDispatcher {
	return &blockingDispatcher{
		started: make(chan string, 16),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 16),
	}
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, event Event) error {
	n := d.running.Add(1)
	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	d.started <- event.Meta().ID
	select {
	case <-d.release:
	case <-ctx.Done():
	}
	d.ctxErr <- ctx.Err()
	d.running.Add(-1)
	return nil
}

func testEvent(id string) Event {
	return &SubscriptionPaid{EventMeta: EventMeta{ID: id, Type: EventSubscriptionPaid}}
}

func TestProcessor_SubmitReturnsBeforeDispatchCompletes(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{}, nil)

	require.NoError(t, p.Submit(context.Background(), testEvent("evt_1")))

	select {
	case id := <-d.started:
		assert.Equal(t, "evt_1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never started")
	}

	close(d.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestProcessor_DetachedFromRequestCancellation(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{}, nil)

	reqCtx, cancelReq := context.WithCancel(types.WithRequestID(context.Background(), "req-1"))
	require.NoError(t, p.Submit(reqCtx, testEvent("evt_1")))
	<-d.started
	cancelReq()

	close(d.release)
	select {
	case err := <-d.ctxErr:
		assert.NoError(t, err, "request cancellation must not reach the dispatch")
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not finish")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestProcessor_TimeoutBoundsDispatch(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{Timeout: 20 * time.Millisecond}, nil)

	require.NoError(t, p.Submit(context.Background(), testEvent("evt_1")))

	select {
	case err := <-d.ctxErr:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch was not cancelled by the timeout")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestProcessor_BoundsInFlight(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{MaxInFlight: 2}, nil)

	for _, id := range []string{"evt_1", "evt_2", "evt_3", "evt_4"} {
		require.NoError(t, p.Submit(context.Background(), testEvent(id)))
	}

	<-d.started
	<-d.started
	select {
	case id := <-d.started:
		t.Fatalf("third dispatch %s started while two were in flight", id)
	case <-time.After(50 * time.Millisecond):
	}

	close(d.release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(2), d.peak.Load())
}

func TestProcessor_ShutdownRejectsAndWaits(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{}, nil)

	require.NoError(t, p.Submit(context.Background(), testEvent("evt_1")))
	<-d.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	assert.ErrorIs(t, p.Submit(context.Background(), testEvent("evt_2")), ErrProcessorClosed)

	close(d.release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestProcessor_WithDispatcher(t *testing.T) {
	h := &recordingHandler{}
	p := NewProcessor(NewDispatcher(h, nil, nil), ProcessorConfig{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Submit(context.Background(), testEvent("evt")))
		}()
	}
	wg.Wait()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Len(t, h.Calls(), 10)
}

func TestProcessor_HealthCheck(t *testing.T) {
	p := NewProcessor(newBlockingDispatcher(), ProcessorConfig{}, nil)

	assert.Equal(t, "webhook_processor", p.Name())
	assert.NoError(t, p.Check(context.Background()))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Check(context.Background()), ErrProcessorClosed)
}

func TestProcessor_DrainWaitsWithoutClosing(t *testing.T) {
	d := newBlockingDispatcher()
	p := NewProcessor(d, ProcessorConfig{}, nil)

	require.NoError(t, p.Submit(context.Background(), testEvent("evt_1")))
	<-d.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Drain(ctx), context.DeadlineExceeded)

	close(d.release)
	require.NoError(t, p.Drain(context.Background()))

	assert.NoError(t, p.Check(context.Background()))
	require.NoError(t, p.Submit(context.Background(), testEvent("evt_2")))
	require.NoError(t, p.Shutdown(context.Background()))
}
