package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers use these instead of hardcoded strings.
const (
	// Validation (400/413): the request is malformed. Messages may name fields.
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidJSON      ErrorCode = "validation_invalid_json"
	ErrCodeValidationInvalidSignature ErrorCode = "validation_invalid_signature_format"
	ErrCodeValidationMissingHeader    ErrorCode = "validation_missing_signature_header"
	ErrCodeValidationBodyUnreadable   ErrorCode = "validation_body_unreadable"
	ErrCodeValidationBodyTooLarge     ErrorCode = "validation_body_too_large"
	ErrCodeValidationMissingEventType ErrorCode = "validation_missing_event_type"
	ErrCodeValidationInvalidValue     ErrorCode = "validation_invalid_value"

	// ErrCodeValidationRawBodyMissing is returned when the webhook handler runs
	// without the raw-body capturer in front of it. The client sees a 400, but
	// the cause is a mis-ordered request pipeline on our side.
	ErrCodeValidationRawBodyMissing ErrorCode = "validation_raw_body_missing"

	// Auth (401): messages must stay generic.
	ErrCodeAuthSignatureInvalid ErrorCode = "auth_signature_invalid"

	// Not Found (404)
	ErrCodeNotFoundRoute ErrorCode = "not_found_route"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its HTTP status code.
// Returns 500 for unrecognized codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case c == ErrCodeValidationBodyTooLarge:
		return http.StatusRequestEntityTooLarge // 413
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. Handler and chassis errors
// are expressed as AppError so that status mapping and response formatting
// stay consistent.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
