package transport

import (
	"log/slog"
	"time"

	"github.com/rhuss/rttp/pkg/protocol"
)

// Logging returns middleware that emits one structured log entry per
// request with the request ID, method, path, status and duration. Responses
// with a 5xx status are logged at error level.
//
// Place it after RequestID so the entry carries the assigned ID.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return MiddlewareFunc(func(c *Context, next *Next) *protocol.Response {
		start := time.Now()

		resp := next.Run(c)

		attrs := []slog.Attr{
			slog.String("request_id", c.RequestID()),
			slog.String("method", c.Request.Method().String()),
			slog.String("path", c.Request.Path()),
			slog.String("proto", c.Request.Proto()),
			slog.Duration("duration", time.Since(start)),
		}
		if peer, ok := PeerAddrKey.Lookup(&c.Extensions); ok && peer != nil {
			attrs = append(attrs, slog.String("peer", peer.String()))
		}

		switch {
		case resp == nil:
			logger.LogAttrs(c.Context(), slog.LevelError, "request failed", append(attrs, slog.String("error", "no response"))...)
		case resp.Status() >= protocol.StatusInternalServerError:
			attrs = append(attrs, slog.Int("status", resp.Status().Code()))
			logger.LogAttrs(c.Context(), slog.LevelError, "request failed", attrs...)
		default:
			attrs = append(attrs, slog.Int("status", resp.Status().Code()), slog.Int("bytes", len(resp.Body())))
			logger.LogAttrs(c.Context(), slog.LevelInfo, "request completed", attrs...)
		}
		return resp
	})
}
