package core

import (
	"reflect"
	"testing"

	"quill/internal/types"
)

type testSignedRequest struct {
	ID        *string `json:"checkout_id" validate:"required,min=1"`
	Product   *string `json:"product_id" validate:"required,min=1"`
	Optional  *string `json:"order_id"`
	Signature *string `json:"signature" validate:"required,min=1,hexdigest"`
}

type testPlainStruct struct {
	Name  string `json:"name" validate:"required"`
	Code  string `json:"code" validate:"min=3"`
	Email string `validate:"required,email"`
}

func ptr(s string) *string { return &s }

func TestValidationResult_IsValid(t *testing.T) {
	if !(ValidationResult{}).IsValid() {
		t.Error("expected empty ValidationResult to be valid")
	}
	r := ValidationResult{Errors: []ValidationError{{Field: "name", Code: "required"}}}
	if r.IsValid() {
		t.Error("expected ValidationResult with errors to be invalid")
	}
}

func TestValidate_Valid(t *testing.T) {
	v := NewValidator(testLogger())
	result := v.Validate(testSignedRequest{
		ID:        ptr("ch_1"),
		Product:   ptr("prod_1"),
		Signature: ptr("00ff"),
	})
	if !result.IsValid() {
		t.Errorf("expected valid, got %+v", result.Errors)
	}
}

func TestValidate_MissingFieldsUseJSONNames(t *testing.T) {
	v := NewValidator(testLogger())
	result := v.Validate(testSignedRequest{Product: ptr("")})

	got := result.FieldsWithCode(types.ErrCodeValidationMissingField)
	want := []string{"checkout_id", "product_id", "signature"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("missing fields = %v, want %v", got, want)
	}
}

func TestValidate_HexDigest(t *testing.T) {
	v := NewValidator(testLogger())

	tests := []struct {
		sig  string
		want bool
	}{
		{"0710e45255ca9647", true},
		{"ABCDEF", true},
		{"abc", false},
		{"zz", false},
		{"0x12", false},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			result := v.Validate(testSignedRequest{ID: ptr("a"), Product: ptr("b"), Signature: ptr(tt.sig)})
			malformed := result.FieldsWithCode(types.ErrCodeValidationInvalidSignature)
			if tt.want && len(malformed) != 0 {
				t.Errorf("expected %q to be accepted", tt.sig)
			}
			if !tt.want && !reflect.DeepEqual(malformed, []string{"signature"}) {
				t.Errorf("expected %q to be rejected as malformed, got %+v", tt.sig, result.Errors)
			}
		})
	}
}

func TestValidate_EmptyPointersAreMissing(t *testing.T) {
	v := NewValidator(testLogger())
	result := v.Validate(testSignedRequest{ID: ptr(""), Product: ptr(""), Signature: ptr("")})

	got := result.FieldsWithCode(types.ErrCodeValidationMissingField)
	want := []string{"checkout_id", "product_id", "signature"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("missing fields = %v, want %v", got, want)
	}
	if malformed := result.FieldsWithCode(types.ErrCodeValidationInvalidSignature); len(malformed) != 0 {
		t.Errorf("empty signature must be missing, not malformed: %v", malformed)
	}
}

func TestValidate_OtherRulesAreInvalidValues(t *testing.T) {
	v := NewValidator(testLogger())
	result := v.Validate(testPlainStruct{Name: "n", Code: "ab", Email: "not-an-email"})

	got := result.FieldsWithCode(types.ErrCodeValidationInvalidValue)
	want := []string{"code", "Email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("invalid-value fields = %v, want %v", got, want)
	}
	if missing := result.FieldsWithCode(types.ErrCodeValidationMissingField); len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}
