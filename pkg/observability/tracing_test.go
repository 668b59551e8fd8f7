package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

func newTracedPipeline(t *testing.T, h transport.Handler) (*transport.Pipeline, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	p := transport.NewPipeline(Tracing(
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
	)).Then(h)
	return p, sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingStartsServerSpan(t *testing.T) {
	var traceID string
	var spanInCtx trace.SpanContext
	p, sr := newTracedPipeline(t, transport.HandlerFunc(func(c *transport.Context) *protocol.Response {
		traceID = transport.TraceIDKey.Get(&c.Extensions)
		spanInCtx = trace.SpanContextFromContext(c.Context())
		return protocol.Text(protocol.StatusOK, "ok")
	}))

	p.Serve(newContext(protocol.MethodGet, "/users/7?verbose=1"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, span.SpanContext().SpanID(), spanInCtx.SpanID())

	path, ok := attrValue(span.Attributes(), "url.path")
	require.True(t, ok)
	assert.Equal(t, "/users/7", path.AsString())
	query, ok := attrValue(span.Attributes(), "url.query")
	require.True(t, ok)
	assert.Equal(t, "verbose=1", query.AsString())
	status, ok := attrValue(span.Attributes(), "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(200), status.AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTracingExtractsIncomingContext(t *testing.T) {
	p, sr := newTracedPipeline(t, transport.HandlerFunc(func(c *transport.Context) *protocol.Response {
		return protocol.Empty(protocol.StatusNoContent)
	}))

	p.Serve(newContext(protocol.MethodPost, "/",
		"Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
	assert.True(t, spans[0].Parent().IsRemote())
}

func TestTracingMarksServerErrors(t *testing.T) {
	p, sr := newTracedPipeline(t, transport.HandlerFunc(func(c *transport.Context) *protocol.Response {
		return protocol.Empty(protocol.StatusServiceUnavailable)
	}))

	p.Serve(newContext(protocol.MethodGet, "/"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Service Unavailable", spans[0].Status().Description)
}

func TestHeaderCarrier(t *testing.T) {
	var h protocol.Headers
	h.Add("Traceparent", "a")
	h.Add("Tracestate", "b")
	carrier := HeaderCarrier{Headers: &h}

	assert.Equal(t, "a", carrier.Get("traceparent"))
	carrier.Set("TRACEPARENT", "c")
	assert.Equal(t, "c", carrier.Get("traceparent"))
	assert.ElementsMatch(t, []string{"Tracestate", "TRACEPARENT"}, carrier.Keys())
}
