// Package lambdaproxy serves an http.Handler behind API Gateway HTTP APIs
// (payload format 2.0).
//
// Request bodies are handed to the handler byte for byte: base64-encoded
// bodies are decoded, text bodies are passed through without any
// re-encoding, so webhook signatures computed over the raw bytes still
// verify.
package lambdaproxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// Adapter converts API Gateway v2 events into requests against Handler.
type Adapter struct {
	handler    http.Handler
	logger     *slog.Logger
	afterServe []func(context.Context) error
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithAfterServe registers fn to run after the handler has produced its
// response and before the invocation returns. Work the handler left running
// in the background must finish here; the runtime freezes the process once
// the invocation returns.
func WithAfterServe(fn func(context.Context) error) Option {
	return func(a *Adapter) { a.afterServe = append(a.afterServe, fn) }
}

// New creates an Adapter for h.
func New(h http.Handler, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{handler: h, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Proxy serves a single API Gateway event. Errors are returned only for
// events that cannot be turned into an HTTP request; handler failures are
// carried in the response status.
func (a *Adapter) Proxy(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := NewRequest(ctx, event)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to convert API Gateway event",
			"route_key", event.RouteKey,
			"error", err.Error(),
		)
		return events.APIGatewayV2HTTPResponse{}, err
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	resp := NewResponse(rec.Result().StatusCode, rec.Header(), rec.Body.Bytes())

	// The response is already fixed; hook failures are logged only.
	for _, fn := range a.afterServe {
		if err := fn(ctx); err != nil {
			a.logger.ErrorContext(ctx, "after-serve hook failed",
				"route_key", event.RouteKey,
				"error", err.Error(),
			)
		}
	}
	return resp, nil
}

// NewRequest builds an *http.Request from an API Gateway v2 event.
func NewRequest(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 body: %w", err)
		}
		body = decoded
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}
	path := event.RawPath
	if path == "" {
		path = event.RequestContext.HTTP.Path
	}
	if path == "" {
		path = "/"
	}

	u := &url.URL{Path: path, RawQuery: event.RawQueryString}
	req, err := http.NewRequestWithContext(ctx, method, u.RequestURI(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	// API Gateway joins repeated headers with commas into one value.
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}

	req.ContentLength = int64(len(body))
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.Host = req.Header.Get("Host")
	if req.Host == "" {
		req.Host = event.RequestContext.DomainName
	}
	req.RequestURI = u.RequestURI()
	return req, nil
}

// NewResponse builds the API Gateway response. Bodies that are not valid
// UTF-8 are base64-encoded.
func NewResponse(status int, header http.Header, body []byte) events.APIGatewayV2HTTPResponse {
	resp := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    make(map[string]string, len(header)),
	}
	for k, values := range header {
		if k == "Set-Cookie" {
			resp.Cookies = append(resp.Cookies, values...)
			continue
		}
		resp.Headers[k] = strings.Join(values, ",")
	}
	if utf8.Valid(body) {
		resp.Body = string(body)
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(body)
		resp.IsBase64Encoded = true
	}
	return resp
}
