package transport

import "github.com/rhuss/rttp/pkg/protocol"

// Handler produces the response for one request. Implementations must
// always return a non-nil response; application failures are mapped to a
// response by the handler itself.
type Handler interface {
	Serve(c *Context) *protocol.Response
}

// HandlerFunc is an adapter to use ordinary functions as Handlers.
type HandlerFunc func(c *Context) *protocol.Response

// Serve calls f(c).
func (f HandlerFunc) Serve(c *Context) *protocol.Response {
	return f(c)
}
