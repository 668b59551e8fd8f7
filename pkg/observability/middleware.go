package observability

import (
	"time"

	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

// Metrics returns middleware that records request metrics.
//
// It captures:
//   - rttp_requests_total (counter): incremented per request with method and status class labels
//   - rttp_request_duration_seconds (histogram): time spent in the rest of the chain
//   - rttp_requests_in_flight (gauge): incremented while the request is being handled
//   - rttp_response_body_bytes_total (counter): response body size
//
// A missing response is counted under status class "5xx".
func Metrics() transport.Middleware {
	return transport.MiddlewareFunc(func(c *transport.Context, next *transport.Next) *protocol.Response {
		start := time.Now()
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		resp := next.Run(c)

		method := MethodLabel(c.Request.Method())
		status := "5xx"
		if resp != nil {
			status = resp.Status().Class()
			ResponseBytesTotal.Add(float64(len(resp.Body())))
		}
		RequestsTotal.WithLabelValues(method, status).Inc()
		RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		return resp
	})
}

// MethodLabel maps a request method to a metric label. Extension methods
// share the label "OTHER" to bound label cardinality.
func MethodLabel(m protocol.Method) string {
	if m.IsCustom() {
		return "OTHER"
	}
	return m.String()
}
