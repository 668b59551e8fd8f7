package transport

import (
	"slices"
	"strconv"
	"strings"

	"github.com/rhuss/rttp/pkg/protocol"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists accepted origins. "*" accepts any origin.
	AllowedOrigins []string

	// AllowedMethods is sent in Access-Control-Allow-Methods.
	AllowedMethods []string

	// AllowedHeaders is sent in Access-Control-Allow-Headers.
	AllowedHeaders []string

	// MaxAge is sent in Access-Control-Max-Age on preflight responses, in
	// seconds.
	MaxAge int
}

// DefaultCORSConfig returns a permissive configuration: any origin, the
// common methods, Content-Type and Authorization headers, one hour max age.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         3600,
	}
}

// CORS returns middleware implementing cross-origin resource sharing.
//
// Requests without an Origin header, or from an origin that is not
// allowed, pass through untouched; the browser enforces the denial. A
// preflight OPTIONS request from an allowed origin is answered with 204
// without reaching the rest of the chain. Other requests from an allowed
// origin are forwarded and the response is decorated with the
// Access-Control-Allow-* headers. Vary: Origin is added unless every origin
// is allowed.
func CORS(cfg CORSConfig) Middleware {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return MiddlewareFunc(func(c *Context, next *Next) *protocol.Response {
		origin, ok := c.Request.Header("Origin")
		if !ok {
			return next.Run(c)
		}

		allow := "*"
		if !wildcard {
			if !slices.Contains(cfg.AllowedOrigins, origin) {
				return next.Run(c)
			}
			allow = origin
		}

		decorate := func(resp *protocol.Response) {
			resp.AddHeader("Access-Control-Allow-Origin", allow)
			resp.AddHeader("Access-Control-Allow-Methods", methods)
			resp.AddHeader("Access-Control-Allow-Headers", headers)
			if !wildcard {
				resp.AddHeader("Vary", "Origin")
			}
		}

		if c.Request.Method() == protocol.MethodOptions {
			resp := protocol.Empty(protocol.StatusNoContent)
			decorate(resp)
			resp.AddHeader("Access-Control-Max-Age", maxAge)
			return resp
		}

		resp := next.Run(c)
		if resp != nil && !resp.Finalized() {
			decorate(resp)
		}
		return resp
	})
}
