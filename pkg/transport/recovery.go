package transport

import (
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/rttp/pkg/protocol"
)

// Recovery returns middleware that catches panics further down the chain and
// converts them to 500 responses. The connection stays usable after a
// recovered panic.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return MiddlewareFunc(func(c *Context, next *Next) (resp *protocol.Response) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogAttrs(c.Context(), slog.LevelError, "handler panic",
					slog.String("request_id", c.RequestID()),
					slog.String("method", c.Request.Method().String()),
					slog.String("path", c.Request.Path()),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				resp = protocol.Text(protocol.StatusInternalServerError, "Internal Server Error")
			}
		}()
		return next.Run(c)
	})
}
