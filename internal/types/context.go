package types

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	rawBodyKey   contextKey = "raw_body"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRawBody attaches the captured request body to the context.
func WithRawBody(ctx context.Context, body *RawBody) context.Context {
	return context.WithValue(ctx, rawBodyKey, body)
}

// RawBodyFromContext returns the body captured by the raw-body middleware.
// The second return value is false when nothing was captured, which means the
// middleware did not run ahead of the caller.
func RawBodyFromContext(ctx context.Context) (*RawBody, bool) {
	body, ok := ctx.Value(rawBodyKey).(*RawBody)
	return body, ok && body != nil
}
