package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"quill/internal/creem"
)

const (
	testAPIKey        = "creem_test_key"
	testWebhookSecret = "whsec_test_secret"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVerifier() *creem.Verifier {
	return creem.NewVerifier(testAPIKey, testWebhookSecret)
}

// mockMetrics records verification outcomes and pipeline defects.
type mockMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
	defects  []string
}

func (m *mockMetrics) RecordVerification(_ context.Context, endpoint, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[endpoint] = append(m.outcomes[endpoint], outcome)
}

func (m *mockMetrics) RecordPipelineDefect(_ context.Context, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defects = append(m.defects, endpoint)
}

func (m *mockMetrics) outcomesFor(endpoint string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes[endpoint]...)
}

// mockSubmitter records submitted events. onSubmit, when set, runs inside
// Submit before the event is recorded.
type mockSubmitter struct {
	events   []creem.Event
	err      error
	onSubmit func(creem.Event)
}

func (m *mockSubmitter) Submit(_ context.Context, event creem.Event) error {
	if m.onSubmit != nil {
		m.onSubmit(event)
	}
	m.events = append(m.events, event)
	return m.err
}
