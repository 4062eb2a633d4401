package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quill/internal/core"
	"quill/internal/creem"
	"quill/internal/types"
)

// Endpoint labels used for logs and metrics.
const (
	EndpointVerifyPayment = "/api/verify-payment"
	EndpointCreemWebhook  = "/api/webhooks/creem"
)

// RedirectVerifier checks a signed checkout redirect.
type RedirectVerifier interface {
	VerifyRedirect(params creem.RedirectParameters) bool
}

// VerificationMetrics records signature verification outcomes.
type VerificationMetrics interface {
	RecordVerification(ctx context.Context, endpoint, outcome string)
}

// VerifyPaymentResponse is the body of every /verify-payment response.
type VerifyPaymentResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// VerifyPaymentHandler verifies the redirect parameters the mobile app
// relays after a checkout. The caller always gets a definitive verified
// boolean; there is no fallback that reports success without a signature
// check.
type VerifyPaymentHandler struct {
	verifier  RedirectVerifier
	validator *core.Validator
	metrics   VerificationMetrics
	logger    *slog.Logger
}

// NewVerifyPaymentHandler creates a VerifyPaymentHandler.
func NewVerifyPaymentHandler(
	verifier RedirectVerifier,
	validator *core.Validator,
	metrics VerificationMetrics,
	logger *slog.Logger,
) *VerifyPaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = core.NewValidator(logger)
	}
	return &VerifyPaymentHandler{
		verifier:  verifier,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes mounts POST /verify-payment on the /api router.
func (h *VerifyPaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/verify-payment", h.Handle)
}

// Handle decodes the relayed parameters, rejects incomplete or malformed
// input with 400, and answers 200 or 401 from the HMAC comparison.
func (h *VerifyPaymentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var params creem.RedirectParameters
	if err := core.DecodeJSON(w, r, &params, core.AllowUnknownFields()); err != nil {
		h.reject(w, r, types.OutcomeMalformed, err, "")
		return
	}

	result := h.validator.Validate(&params)
	if missing := result.FieldsWithCode(types.ErrCodeValidationMissingField); len(missing) > 0 {
		h.reject(w, r, types.OutcomeMalformed, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"Missing required parameters: "+strings.Join(missing, ", "),
			nil,
			map[string]any{"fields": missing},
		), params.CheckoutIDValue())
		return
	}
	if !result.IsValid() {
		h.reject(w, r, types.OutcomeMalformed, types.NewAppError(
			types.ErrorCode(result.Errors[0].Code),
			"Invalid signature format",
			nil,
		), params.CheckoutIDValue())
		return
	}

	if !h.verifier.VerifyRedirect(params) {
		h.reject(w, r, types.OutcomeRejected, types.NewAppError(
			types.ErrCodeAuthSignatureInvalid,
			"Invalid signature",
			nil,
		), params.CheckoutIDValue())
		return
	}

	h.record(ctx, types.OutcomeVerified)
	h.logger.InfoContext(ctx, "redirect signature verified",
		"checkout_id", params.CheckoutIDValue(),
		"outcome", types.OutcomeVerified,
	)
	core.JSON(w, r, http.StatusOK, VerifyPaymentResponse{Verified: true})
}

func (h *VerifyPaymentHandler) reject(w http.ResponseWriter, r *http.Request, outcome string, err error, checkoutID string) {
	appErr := asAppError(err)

	h.record(r.Context(), outcome)
	h.logger.WarnContext(r.Context(), "redirect verification rejected",
		"checkout_id", checkoutID,
		"outcome", outcome,
		"code", appErr.Code,
	)
	core.JSON(w, r, appErr.HTTPStatus(), VerifyPaymentResponse{
		Verified: false,
		Error:    appErr.Message,
	})
}

func (h *VerifyPaymentHandler) record(ctx context.Context, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordVerification(ctx, EndpointVerifyPayment, outcome)
	}
}
