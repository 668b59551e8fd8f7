// Package observability provides Prometheus metrics, OpenTelemetry tracing
// and the middleware that records them for the rttp server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LatencyBuckets defines histogram buckets for request handling latency,
// ranging from 100µs to 10s.
var LatencyBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

var (
	// ConnectionsActive tracks the number of open client connections.
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rttp_connections_active",
			Help: "Open connections",
		},
	)

	// ConnectionsTotal counts accepted connections.
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rttp_connections_total",
			Help: "Accepted connections",
		},
	)

	// AcceptErrorsTotal counts failed accept calls on the listener.
	AcceptErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rttp_accept_errors_total",
			Help: "Listener accept failures",
		},
	)

	// ProtocolErrorsTotal counts requests rejected by the connection engine
	// by error kind (request_line, header, too_large, ...).
	ProtocolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rttp_protocol_errors_total",
			Help: "Protocol errors",
		},
		[]string{"kind"},
	)

	// TransportErrorsTotal counts connections aborted by socket errors, by
	// operation (read or write).
	TransportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rttp_transport_errors_total",
			Help: "Transport errors",
		},
		[]string{"op"},
	)

	// RequestsTotal counts dispatched requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rttp_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records handler duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rttp_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method"},
	)

	// RequestsInFlight tracks requests currently inside the pipeline.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rttp_requests_in_flight",
			Help: "Requests being handled",
		},
	)

	// ResponseBytesTotal counts response body bytes produced by handlers.
	ResponseBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rttp_response_body_bytes_total",
			Help: "Response body bytes",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		ConnectionsTotal,
		AcceptErrorsTotal,
		ProtocolErrorsTotal,
		TransportErrorsTotal,
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		ResponseBytesTotal,
	)
}
