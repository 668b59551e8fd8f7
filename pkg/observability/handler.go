package observability

import (
	"bytes"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

// MetricsHandler returns a handler that serves the metrics of g in the
// Prometheus text exposition format. A nil gatherer means
// prometheus.DefaultGatherer.
func MetricsHandler(g prometheus.Gatherer) transport.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return transport.HandlerFunc(func(c *transport.Context) *protocol.Response {
		families, err := g.Gather()
		if err != nil && len(families) == 0 {
			slog.Error("gathering metrics", "error", err)
			return protocol.Text(protocol.StatusInternalServerError, "failed to gather metrics")
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				slog.Error("encoding metrics", "family", mf.GetName(), "error", err)
				return protocol.Text(protocol.StatusInternalServerError, "failed to encode metrics")
			}
		}
		return protocol.NewResponse(protocol.StatusOK).
			WithHeader("Content-Type", string(format)).
			WithBody(buf.Bytes())
	})
}
