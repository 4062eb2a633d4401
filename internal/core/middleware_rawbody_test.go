package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quill/internal/types"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestCaptureRawBody_PreservesExactBytes(t *testing.T) {
	// Whitespace, key order and escapes must survive untouched.
	payload := []byte("{ \"b\":1,\n  \"a\" : \"caf\\u00e9\" }\r\n")

	var captured []byte
	var reread []byte
	handler := CaptureRawBody(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := types.RawBodyFromContext(r.Context())
		if !ok {
			t.Fatal("raw body missing from context")
		}
		captured = body.Bytes()
		var err error
		reread, err = io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("re-reading body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Equal(captured, payload) {
		t.Errorf("captured = %q, want %q", captured, payload)
	}
	if !bytes.Equal(reread, payload) {
		t.Errorf("r.Body = %q, want %q", reread, payload)
	}
}

func TestCaptureRawBody_EmptyBody(t *testing.T) {
	var got *types.RawBody
	handler := CaptureRawBody(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = types.RawBodyFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/hook", http.NoBody)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected an empty raw body, got none")
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestCaptureRawBody_TooLarge(t *testing.T) {
	called := false
	handler := CaptureRawBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(strings.Repeat("x", 17)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("next handler ran with a truncated body")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}

	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeValidationBodyTooLarge) {
		t.Errorf("code = %q, want %q", resp.Error.Code, types.ErrCodeValidationBodyTooLarge)
	}
}

func TestCaptureRawBody_ExactlyAtLimit(t *testing.T) {
	called := false
	handler := CaptureRawBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(strings.Repeat("x", 16)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("a body of exactly the limit was rejected")
	}
}

func TestCaptureRawBody_ReadError(t *testing.T) {
	called := false
	handler := CaptureRawBody(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/hook", errReader{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("next handler ran after a read error")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(types.ErrCodeValidationBodyUnreadable)) {
		t.Errorf("body = %s, want code %s", rec.Body.String(), types.ErrCodeValidationBodyUnreadable)
	}
}

func TestCaptureRawBody_DefaultLimit(t *testing.T) {
	handler := CaptureRawBody(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(make([]byte, DefaultMaxRawBodyBytes+1)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 at the default limit", rec.Code)
	}
}
