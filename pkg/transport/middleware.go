package transport

import (
	"context"
	"errors"

	"github.com/rhuss/rttp/pkg/protocol"
)

// NoResponseMessage is the body of the fallback response returned when the
// pipeline runs out of units without any of them producing a response.
const NoResponseMessage = "No response generated by middleware pipeline"

// ErrCursorReused is the panic value raised when a Next cursor is run more
// than once.
var ErrCursorReused = errors.New("transport: middleware cursor run more than once")

// Middleware intercepts a request on its way to the terminal handler.
//
// A unit may forward by calling next.Run, short-circuit by returning its own
// response without calling next, or decorate the response that next.Run
// returns before passing it back up the chain.
type Middleware interface {
	Intercept(c *Context, next *Next) *protocol.Response
}

// MiddlewareFunc is an adapter to use ordinary functions as Middleware.
type MiddlewareFunc func(c *Context, next *Next) *protocol.Response

// Intercept calls f(c, next).
func (f MiddlewareFunc) Intercept(c *Context, next *Next) *protocol.Response {
	return f(c, next)
}

// Next is a single-use cursor into a Pipeline. It points at the unit that
// runs when Run is called.
type Next struct {
	pipeline *Pipeline
	index    int
	fired    bool
}

// Run invokes the rest of the chain. It panics with ErrCursorReused when
// called a second time.
func (n *Next) Run(c *Context) *protocol.Response {
	if n.fired {
		panic(ErrCursorReused)
	}
	n.fired = true
	return n.pipeline.run(c, n.index)
}

// Pipeline is an ordered chain of middleware units with an optional
// terminal handler. Middleware are applied in order: the first unit is the
// outermost one (runs first on the way in, last on the way out).
//
// A Pipeline must be fully built before it is shared between connections;
// Serve never mutates it.
type Pipeline struct {
	units    []Middleware
	terminal Handler
}

// NewPipeline returns a pipeline running units in order.
func NewPipeline(units ...Middleware) *Pipeline {
	return &Pipeline{units: units}
}

// Use appends units to the chain.
func (p *Pipeline) Use(units ...Middleware) *Pipeline {
	p.units = append(p.units, units...)
	return p
}

// Then sets the terminal handler invoked after the last unit forwards.
func (p *Pipeline) Then(h Handler) *Pipeline {
	p.terminal = h
	return p
}

// Len returns the number of middleware units.
func (p *Pipeline) Len() int {
	return len(p.units)
}

// Serve runs c through the chain. It implements Handler.
func (p *Pipeline) Serve(c *Context) *protocol.Response {
	return p.run(c, 0)
}

func (p *Pipeline) run(c *Context, index int) *protocol.Response {
	if index < len(p.units) {
		return p.units[index].Intercept(c, &Next{pipeline: p, index: index + 1})
	}
	if p.terminal != nil {
		return p.terminal.Serve(c)
	}
	return protocol.Text(protocol.StatusInternalServerError, NoResponseMessage)
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

// requestIDKey is the context key for storing and retrieving request IDs.
var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
