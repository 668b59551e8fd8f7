package observability

import (
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

// TracerName is the instrumentation scope of spans started by Tracing.
const TracerName = "github.com/rhuss/rttp/pkg/observability"

// HeaderCarrier adapts protocol.Headers to propagation.TextMapCarrier.
type HeaderCarrier struct {
	Headers *protocol.Headers
}

var _ propagation.TextMapCarrier = HeaderCarrier{}

// Get returns the first value of key.
func (hc HeaderCarrier) Get(key string) string {
	return hc.Headers.Value(key)
}

// Set replaces every value of key.
func (hc HeaderCarrier) Set(key, value string) {
	hc.Headers.Set(key, value)
}

// Keys lists the header names in insertion order.
func (hc HeaderCarrier) Keys() []string {
	keys := make([]string, 0, hc.Headers.Len())
	for name := range hc.Headers.All() {
		keys = append(keys, name)
	}
	return keys
}

// TracingOption configures the Tracing middleware.
type TracingOption func(*tracingConfig)

type tracingConfig struct {
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
}

// WithTracerProvider sets the tracer provider. The global provider is used
// by default.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *tracingConfig) {
		c.provider = tp
	}
}

// WithPropagator sets the propagator used to extract the incoming trace
// context. The global propagator is used by default.
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(c *tracingConfig) {
		c.propagator = p
	}
}

// Tracing returns middleware that starts a server span per request. The
// incoming trace context is extracted from the request headers, the span
// context is attached to the Context's Go context and the trace ID is
// stored under transport.TraceIDKey. Responses with a 5xx status mark the
// span as failed.
func Tracing(opts ...TracingOption) transport.Middleware {
	cfg := tracingConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}
	if cfg.propagator == nil {
		cfg.propagator = otel.GetTextMapPropagator()
	}
	tracer := cfg.provider.Tracer(TracerName)

	return transport.MiddlewareFunc(func(c *transport.Context, next *transport.Next) *protocol.Response {
		req := c.Request
		headers := req.Headers()
		ctx := cfg.propagator.Extract(c.Context(), HeaderCarrier{Headers: &headers})

		ctx, span := tracer.Start(ctx, req.Method().String(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method().String()),
				attribute.String("url.path", req.Path()),
				attribute.String("network.protocol.version", strings.TrimPrefix(req.Proto(), "HTTP/")),
			),
		)
		defer span.End()

		if q := req.RawQuery(); q != "" {
			span.SetAttributes(attribute.String("url.query", q))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			transport.TraceIDKey.Set(&c.Extensions, sc.TraceID().String())
		}
		c.SetContext(ctx)

		resp := next.Run(c)
		if resp == nil {
			span.SetStatus(codes.Error, "no response")
			return resp
		}

		status := resp.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status.Code()))
		if status >= protocol.StatusInternalServerError {
			span.SetStatus(codes.Error, status.Reason())
		}
		return resp
	})
}
