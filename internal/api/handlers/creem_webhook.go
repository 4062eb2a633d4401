// Package handlers contains the HTTP handlers for the quill API.
//
// Both handlers sit on the provider trust boundary: the redirect verifier
// answers the mobile app after checkout, and the webhook handler accepts
// lifecycle events from Creem. Neither runs behind authentication; the
// provider signature is the only credential.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quill/internal/core"
	"quill/internal/creem"
	"quill/internal/types"
)

// Header names carrying the webhook signature. Creem sends the first; the
// second is accepted as an alias.
const (
	HeaderCreemSignature  = "Creem-Signature"
	HeaderXCreemSignature = "X-Creem-Signature"
)

// WebhookVerifier checks a webhook signature over the raw body bytes.
type WebhookVerifier interface {
	VerifyWebhook(body []byte, signature string) bool
}

// WebhookMetrics records webhook verification outcomes and pipeline defects.
type WebhookMetrics interface {
	VerificationMetrics
	RecordPipelineDefect(ctx context.Context, endpoint string)
}

// EventSubmitter hands a verified event to post-acknowledgment processing.
type EventSubmitter interface {
	Submit(ctx context.Context, event creem.Event) error
}

// WebhookErrorResponse is the body of every rejected webhook.
type WebhookErrorResponse struct {
	Error string `json:"error"`
}

// WebhookAckResponse acknowledges a verified webhook.
type WebhookAckResponse struct {
	Received bool `json:"received"`
}

// CreemWebhookHandler verifies Creem webhooks and acknowledges them before
// any event handler runs.
type CreemWebhookHandler struct {
	verifier     WebhookVerifier
	submitter    EventSubmitter
	metrics      WebhookMetrics
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewCreemWebhookHandler creates a CreemWebhookHandler. maxBodyBytes bounds
// the raw-body capture on the webhook route; zero uses the core default.
func NewCreemWebhookHandler(
	verifier WebhookVerifier,
	submitter EventSubmitter,
	metrics WebhookMetrics,
	maxBodyBytes int64,
	logger *slog.Logger,
) *CreemWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreemWebhookHandler{
		verifier:     verifier,
		submitter:    submitter,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// RegisterRoutes mounts POST /webhooks/creem with the raw-body capturer in
// front of it. The capturer is route-scoped so no other route pays for
// buffering.
func (h *CreemWebhookHandler) RegisterRoutes(r chi.Router) {
	r.With(core.CaptureRawBody(h.maxBodyBytes)).Post("/webhooks/creem", h.Handle)
}

// Handle processes a Creem webhook:
//
//  1. Exactly one signature header value, else 400.
//  2. Raw body present in the context, else 400 and a pipeline-defect alert.
//  3. HMAC over the raw bytes matches, else 401.
//  4. Envelope parses from the same bytes with an eventType, else 400.
//  5. 200 {received:true} is written and flushed, then the event is
//     submitted for processing. Nothing after this point changes the response.
func (h *CreemWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signature, ok := signatureHeader(r.Header)
	if !ok {
		h.reject(w, r, types.OutcomeMalformed, types.NewAppError(
			types.ErrCodeValidationMissingHeader,
			"Missing signature header",
			nil,
		))
		return
	}

	raw, ok := types.RawBodyFromContext(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "raw body not captured before webhook handler; check route middleware order",
			"endpoint", EndpointCreemWebhook,
		)
		if h.metrics != nil {
			h.metrics.RecordPipelineDefect(ctx, EndpointCreemWebhook)
		}
		writeWebhookError(w, r, types.NewAppError(
			types.ErrCodeValidationRawBodyMissing,
			"Raw body unavailable",
			nil,
		))
		return
	}

	body := raw.Bytes()
	if !h.verifier.VerifyWebhook(body, signature) {
		h.reject(w, r, types.OutcomeRejected, types.NewAppError(
			types.ErrCodeAuthSignatureInvalid,
			"Invalid signature",
			nil,
		))
		return
	}
	h.record(ctx, types.OutcomeVerified)

	event, err := creem.ParseEvent(body)
	if err != nil {
		appErr := types.NewAppError(types.ErrCodeValidationInvalidJSON, "Invalid JSON payload", err)
		if errors.Is(err, creem.ErrMissingEventType) {
			appErr = types.NewAppError(types.ErrCodeValidationMissingEventType, "Missing eventType in payload", err)
		}
		h.logger.WarnContext(ctx, "verified webhook payload rejected",
			"code", appErr.Code,
			"error", err.Error(),
		)
		writeWebhookError(w, r, appErr)
		return
	}

	meta := event.Meta()
	core.JSON(w, r, http.StatusOK, WebhookAckResponse{Received: true})
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.WarnContext(ctx, "failed to flush webhook acknowledgment",
			"event_id", meta.ID,
			"error", err.Error(),
		)
	}

	h.logger.InfoContext(ctx, "webhook acknowledged",
		"event_id", meta.ID,
		"event_type", meta.Type,
	)

	if err := h.submitter.Submit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "webhook event not processed",
			"event_id", meta.ID,
			"event_type", meta.Type,
			"error", err.Error(),
		)
	}
}

func (h *CreemWebhookHandler) reject(w http.ResponseWriter, r *http.Request, outcome string, appErr *types.AppError) {
	h.record(r.Context(), outcome)
	h.logger.WarnContext(r.Context(), "webhook rejected",
		"outcome", outcome,
		"code", appErr.Code,
	)
	writeWebhookError(w, r, appErr)
}

func (h *CreemWebhookHandler) record(ctx context.Context, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordVerification(ctx, EndpointCreemWebhook, outcome)
	}
}

// signatureHeader returns the single signature value across both header
// names. Zero values, several values, or an empty value are all rejected.
func signatureHeader(header http.Header) (string, bool) {
	var values []string
	values = append(values, header.Values(HeaderCreemSignature)...)
	values = append(values, header.Values(HeaderXCreemSignature)...)
	if len(values) != 1 || values[0] == "" {
		return "", false
	}
	return values[0], true
}

func writeWebhookError(w http.ResponseWriter, r *http.Request, appErr *types.AppError) {
	core.JSON(w, r, appErr.HTTPStatus(), WebhookErrorResponse{Error: appErr.Message})
}

// asAppError returns err as an AppError, wrapping anything else as an
// internal error.
func asAppError(err error) *types.AppError {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return types.NewAppError(types.ErrCodeInternalUnexpected, "an unexpected error occurred", err)
}
