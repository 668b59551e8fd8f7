package transport

import (
	"context"

	"github.com/rhuss/rttp/pkg/protocol"
)

// PathParams maps capture names from a route pattern to the path segments
// they matched.
type PathParams map[string]string

// Get returns the named parameter and whether it was captured.
func (p PathParams) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Context is the unit of work passed through the middleware pipeline. It is
// created fresh for every dispatched request and owned by that dispatch.
type Context struct {
	// Request is the parsed request.
	Request *protocol.Request

	// Params holds the captures of the matched route. The router fills it
	// before calling the route handler.
	Params PathParams

	// Extensions carries per-request side-channel values.
	Extensions Extensions

	ctx context.Context
}

// NewContext returns a Context for req. ctx carries cancellation and trace
// spans for the request; a nil ctx is replaced by context.Background.
func NewContext(ctx context.Context, req *protocol.Request) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Request: req,
		Params:  PathParams{},
		ctx:     ctx,
	}
}

// Context returns the Go context of the request.
func (c *Context) Context() context.Context {
	return c.ctx
}

// SetContext replaces the Go context of the request, for example to attach a
// span.
func (c *Context) SetContext(ctx context.Context) {
	c.ctx = ctx
}

// Param returns the named path parameter, or "" when absent.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// RequestID returns the request ID assigned by the RequestID middleware.
func (c *Context) RequestID() string {
	return RequestIDKey.Get(&c.Extensions)
}
