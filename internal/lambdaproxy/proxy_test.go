package lambdaproxy

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookEvent(body string, base64Encoded bool) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RouteKey:       "POST /api/webhooks/creem",
		RawPath:        "/api/webhooks/creem",
		RawQueryString: "source=test",
		Headers: map[string]string{
			"content-type":    "application/json",
			"creem-signature": "abc123",
			"host":            "api.example.com",
		},
		Body:            body,
		IsBase64Encoded: base64Encoded,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: "fallback.example.com",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   http.MethodPost,
				Path:     "/api/webhooks/creem",
				SourceIP: "203.0.113.7",
			},
		},
	}
}

func TestNewRequest_PreservesTextBodyBytes(t *testing.T) {
	raw := "{\"eventType\": \"checkout.completed\",  \"id\":\"evt_1\"}\n"

	req, err := NewRequest(context.Background(), webhookEvent(raw, false))
	require.NoError(t, err)

	got, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, raw, string(got))
	assert.Equal(t, int64(len(raw)), req.ContentLength)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/webhooks/creem", req.URL.Path)
	assert.Equal(t, "source=test", req.URL.RawQuery)
	assert.Equal(t, "abc123", req.Header.Get("Creem-Signature"))
	assert.Equal(t, "api.example.com", req.Host)
	assert.Equal(t, "203.0.113.7", req.RemoteAddr)
}

func TestNewRequest_DecodesBase64Body(t *testing.T) {
	raw := []byte{'{', '}', 0xff, 0x00, '\n'}

	req, err := NewRequest(context.Background(), webhookEvent(base64.StdEncoding.EncodeToString(raw), true))
	require.NoError(t, err)

	got, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestNewRequest_InvalidBase64(t *testing.T) {
	_, err := NewRequest(context.Background(), webhookEvent("not base64!!", true))
	require.Error(t, err)
}

func TestNewRequest_HostFallsBackToDomainName(t *testing.T) {
	event := webhookEvent("{}", false)
	delete(event.Headers, "host")

	req, err := NewRequest(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "fallback.example.com", req.Host)
}

func TestNewResponse_BinaryBodyIsBase64(t *testing.T) {
	resp := NewResponse(http.StatusOK, http.Header{"Content-Type": {"application/octet-stream"}}, []byte{0xff, 0xfe})

	assert.True(t, resp.IsBase64Encoded)
	decoded, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, decoded)
	assert.Equal(t, "application/octet-stream", resp.Headers["Content-Type"])
}

func TestAdapter_Proxy(t *testing.T) {
	var seen []byte
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"received":true}`))
	})

	resp, err := New(h, nil).Proxy(context.Background(), webhookEvent(`{"x":1}`, false))
	require.NoError(t, err)

	assert.Equal(t, `{"x":1}`, string(seen))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `{"received":true}`, resp.Body)
	assert.False(t, resp.IsBase64Encoded)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, []string{"a=1"}, resp.Cookies)
}

func TestAdapter_ProxyConversionError(t *testing.T) {
	called := false
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	_, err := New(h, nil).Proxy(context.Background(), webhookEvent("%%%", true))
	require.Error(t, err)
	assert.False(t, called)
}

func TestAdapter_AfterServeRunsAfterHandler(t *testing.T) {
	var order []string
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	})
	drain := func(context.Context) error {
		order = append(order, "drain")
		return errors.New("deadline exceeded")
	}

	resp, err := New(h, nil, WithAfterServe(drain)).Proxy(context.Background(), webhookEvent("{}", false))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"handler", "drain"}, order)
}
