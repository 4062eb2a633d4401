package core

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"quill/internal/types"
)

// DefaultMaxRawBodyBytes is the capture limit when none is configured.
const DefaultMaxRawBodyBytes int64 = 64 * 1024

// CaptureRawBody buffers the whole request body before anything parses it.
//
// The exact bytes are stored in the request context as *types.RawBody and
// r.Body is replaced by a fresh reader over the same bytes. A read failure
// ends the request with 400 and an oversize body with 413; the next handler
// never sees a partial buffer.
//
// Mount it per route, ahead of the handler that verifies a signature over
// the body.
func CaptureRawBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRawBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var data []byte
			if r.Body != nil && r.Body != http.NoBody {
				var err error
				data, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
				if err != nil {
					Error(w, r, rawBodyError(err))
					return
				}
			}

			body := types.NewRawBody(data)
			r.Body = io.NopCloser(bytes.NewReader(body.Bytes()))
			r.ContentLength = int64(body.Len())

			next.ServeHTTP(w, r.WithContext(types.WithRawBody(r.Context(), body)))
		})
	}
}

func rawBodyError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationBodyTooLarge,
			"request body too large",
			err,
			map[string]any{"limit_bytes": maxBytesErr.Limit},
		)
	}
	return types.NewAppError(types.ErrCodeValidationBodyUnreadable, "request body could not be read", err)
}
