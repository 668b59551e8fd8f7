package transport

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/rttp/pkg/protocol"
)

// RequestIDHeader is the header used to receive and echo request IDs.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied request IDs.
const maxRequestIDLen = 128

// RequestID returns middleware that assigns a unique request ID to each
// request. An incoming X-Request-ID header is honoured when it is short
// enough; otherwise a new ID is generated.
//
// The ID is stored under RequestIDKey and in the Go context (see
// RequestIDFromContext), and echoed on the response unless the handler set
// the header itself.
func RequestID() Middleware {
	return MiddlewareFunc(func(c *Context, next *Next) *protocol.Response {
		id, _ := c.Request.Header(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = generateRequestID()
		}
		RequestIDKey.Set(&c.Extensions, id)
		c.SetContext(ContextWithRequestID(c.Context(), id))

		resp := next.Run(c)
		if resp != nil && !resp.Finalized() {
			if _, ok := resp.Header(RequestIDHeader); !ok {
				resp.AddHeader(RequestIDHeader, id)
			}
		}
		return resp
	})
}

// generateRequestID creates a new unique request ID as a hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
