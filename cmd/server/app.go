package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rhuss/rttp/pkg/config"
	"github.com/rhuss/rttp/pkg/observability"
	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/router"
	"github.com/rhuss/rttp/pkg/transport"
)

// buildHandler assembles the middleware pipeline and the demo routes.
// draining reports whether the server is shutting down; nil means never.
func buildHandler(cfg *config.Config, logger *slog.Logger, draining func() bool) transport.Handler {
	p := transport.NewPipeline(
		transport.Recovery(logger),
		transport.RequestID(),
		transport.Logging(logger),
	)
	if cfg.Observability.Metrics.Enabled {
		p.Use(observability.Metrics())
	}
	if cfg.Observability.Tracing.Enabled {
		p.Use(observability.Tracing())
	}
	if cfg.CORS.Enabled {
		p.Use(transport.CORS(transport.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:         cfg.CORS.MaxAge,
		}))
	}

	r := router.New()
	registerRoutes(r, draining)
	if cfg.Observability.Metrics.Enabled {
		r.Handle(protocol.MethodGet, cfg.Observability.Metrics.Path, observability.MetricsHandler(nil))
	}
	return p.Then(r)
}

func registerRoutes(r *router.Router, draining func() bool) {
	r.Get("/healthz", func(c *transport.Context) *protocol.Response {
		if draining != nil && draining() {
			return protocol.Text(protocol.StatusServiceUnavailable, "draining")
		}
		return protocol.Text(protocol.StatusOK, "ok")
	})

	r.Get("/", func(c *transport.Context) *protocol.Response {
		return protocol.Text(protocol.StatusOK, "Hello from rttp!")
	})

	r.Get("/hello/:name", func(c *transport.Context) *protocol.Response {
		return protocol.Text(protocol.StatusOK, fmt.Sprintf("Hello, %s!", c.Param("name")))
	})

	r.Post("/echo", func(c *transport.Context) *protocol.Response {
		resp := protocol.NewResponse(protocol.StatusOK).WithBody(c.Request.Body())
		if ct, ok := c.Request.Header("Content-Type"); ok {
			resp.SetHeader("Content-Type", ct)
		}
		return resp
	})

	r.Get("/files/*", func(c *transport.Context) *protocol.Response {
		file := strings.TrimPrefix(c.Param(router.WildcardParam), "/")
		if file == "" {
			return transport.ErrorJSON(transport.NewNotFoundError("no file requested"))
		}
		if strings.Contains(file, "..") {
			return transport.ErrorJSON(transport.NewInvalidRequestError("path", "invalid file path"))
		}
		return protocol.JSON(protocol.StatusOK, map[string]string{
			"file":       file,
			"request_id": c.RequestID(),
		})
	})
}

// setupTracing installs the global tracer provider and propagator. The
// returned function flushes and stops the provider.
func setupTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	}
	if cfg.Exporter == "stdout" {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return noop, fmt.Errorf("creating stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	slog.InfoContext(ctx, "tracing enabled", "exporter", cfg.Exporter, "service", cfg.ServiceName)
	return tp.Shutdown, nil
}
