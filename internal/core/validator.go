package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"quill/internal/signing"
	"quill/internal/types"
)

// ValidationError describes one failed rule, named by the field's JSON key.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects every failed rule for a struct.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid reports whether no rule failed.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// FieldsWithCode returns the names of fields that failed with code, in
// declaration order.
func (r ValidationResult) FieldsWithCode(code types.ErrorCode) []string {
	var fields []string
	for _, e := range r.Errors {
		if e.Code == string(code) {
			fields = append(fields, e.Field)
		}
	}
	return fields
}

// Validator wraps go-playground/validator with JSON field naming and the
// custom tags request structs use:
//
//	hexdigest  even-length, non-empty hexadecimal string
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("hexdigest", validateHexDigest); err != nil {
		// Registration only fails on an empty tag or nil func.
		panic(err)
	}

	return &Validator{validate: v, logger: logger}
}

// Validate runs every rule on s and collects the failures.
func (v *Validator) Validate(s any) ValidationResult {
	err := v.validate.Struct(s)
	if err == nil {
		return ValidationResult{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("validator misuse", "error", err)
		return ValidationResult{Errors: []ValidationError{{
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: "validation could not run",
		}}}
	}

	result := ValidationResult{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		result.Errors = append(result.Errors, toValidationError(fe))
	}
	return result
}

func toValidationError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	switch {
	case isMissing(fe):
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationMissingField),
			Message: field + " is required",
		}
	case fe.Tag() == "hexdigest":
		return ValidationError{
			Field:   field,
			Code:    string(types.ErrCodeValidationInvalidSignature),
			Message: field + " must be an even-length hexadecimal string",
		}
	}
	return ValidationError{
		Field:   field,
		Code:    string(types.ErrCodeValidationInvalidValue),
		Message: field + " failed the " + fe.Tag() + " rule",
	}
}

// isMissing reports a nil or empty value. required alone passes a non-nil
// pointer to "", so string fields pair it with min=1.
func isMissing(fe validator.FieldError) bool {
	switch fe.Tag() {
	case "required":
		return true
	case "min":
		return fe.Kind() == reflect.String && fe.Param() == "1"
	}
	return false
}

func validateHexDigest(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return signing.IsHexDigest(field.String())
}

// jsonFieldName reports fields by their JSON key so messages match what the
// client sent.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
