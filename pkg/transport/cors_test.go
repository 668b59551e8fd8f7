package transport

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/rttp/pkg/protocol"
)

func countingHandler(calls *int) Handler {
	return HandlerFunc(func(c *Context) *protocol.Response {
		*calls++
		return protocol.Text(protocol.StatusOK, "payload")
	})
}

func header(t *testing.T, resp *protocol.Response, name string) string {
	t.Helper()
	v, ok := resp.Header(name)
	require.True(t, ok, "missing header %s", name)
	return v
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	calls := 0
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://app.example"},
		AllowedMethods: []string{"GET", "PATCH"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	p := NewPipeline(CORS(cfg)).Then(countingHandler(&calls))

	resp := p.Serve(newTestContext(protocol.MethodOptions, "/api", "Origin", "https://app.example"))

	assert.Zero(t, calls)
	assert.Equal(t, protocol.StatusNoContent, resp.Status())
	assert.Empty(t, resp.Body())
	assert.Equal(t, "https://app.example", header(t, resp, "Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, PATCH", header(t, resp, "Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", header(t, resp, "Access-Control-Allow-Headers"))
	assert.Equal(t, "600", header(t, resp, "Access-Control-Max-Age"))
	assert.Equal(t, "Origin", header(t, resp, "Vary"))
}

func TestCORSPreflightWildcardHasNoVary(t *testing.T) {
	calls := 0
	p := NewPipeline(CORS(DefaultCORSConfig())).Then(countingHandler(&calls))

	resp := p.Serve(newTestContext(protocol.MethodOptions, "/", "Origin", "https://any.example"))

	assert.Zero(t, calls)
	assert.Equal(t, "*", header(t, resp, "Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", header(t, resp, "Access-Control-Max-Age"))
	_, hasVary := resp.Header("Vary")
	assert.False(t, hasVary)
}

func TestCORSDecoratesActualRequest(t *testing.T) {
	calls := 0
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://a.example", "https://b.example"}
	p := NewPipeline(CORS(cfg)).Then(countingHandler(&calls))

	resp := p.Serve(newTestContext(protocol.MethodGet, "/", "origin", "https://b.example"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "payload", string(resp.Body()))
	assert.Equal(t, "https://b.example", header(t, resp, "Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE", header(t, resp, "Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", header(t, resp, "Access-Control-Allow-Headers"))
	assert.Equal(t, "Origin", header(t, resp, "Vary"))
	_, hasMaxAge := resp.Header("Access-Control-Max-Age")
	assert.False(t, hasMaxAge)
}

func TestCORSPassesThroughUntouched(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://a.example"}

	tests := []struct {
		name    string
		method  protocol.Method
		headers []string
	}{
		{name: "no origin", method: protocol.MethodGet},
		{name: "no origin preflight", method: protocol.MethodOptions},
		{name: "disallowed origin", method: protocol.MethodGet, headers: []string{"Origin", "https://evil.example"}},
		{name: "disallowed origin preflight", method: protocol.MethodOptions, headers: []string{"Origin", "https://evil.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := NewPipeline(CORS(cfg)).Then(countingHandler(&calls))

			resp := p.Serve(newTestContext(tt.method, "/", tt.headers...))

			assert.Equal(t, 1, calls)
			assert.Equal(t, protocol.StatusOK, resp.Status())
			for name := range resp.Headers().All() {
				assert.False(t, slices.Contains([]string{
					"Access-Control-Allow-Origin",
					"Access-Control-Allow-Methods",
					"Access-Control-Allow-Headers",
					"Vary",
				}, name), "unexpected header %s", name)
			}
		})
	}
}
