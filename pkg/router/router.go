// Package router dispatches requests to handlers by method and path
// pattern.
//
// Patterns are literal paths ("/users"), paths with named captures
// ("/users/:id/posts/:post") or prefixes with a wildcard suffix
// ("/files/*"). Routes are tried in registration order and the first
// match wins; requests matching no route get a 404.
package router

import (
	"github.com/rhuss/rttp/pkg/debug"
	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

type route struct {
	method  protocol.Method
	pattern Pattern
	handler transport.Handler
}

// Router is a first-match route table. Routes must be registered before the
// router is handed to a server; dispatch never mutates it and takes no
// locks.
type Router struct {
	routes []route
}

// New returns an empty router.
func New() *Router {
	return &Router{}
}

// Handle registers handler for method and pattern.
func (r *Router) Handle(method protocol.Method, pattern string, handler transport.Handler) {
	r.routes = append(r.routes, route{
		method:  method,
		pattern: Compile(pattern),
		handler: handler,
	})
	debug.Log("router", "route registered", "method", method, "pattern", pattern)
}

// HandleFunc registers a handler function for method and pattern.
func (r *Router) HandleFunc(method protocol.Method, pattern string, fn func(*transport.Context) *protocol.Response) {
	r.Handle(method, pattern, transport.HandlerFunc(fn))
}

// Get registers a GET route.
func (r *Router) Get(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodGet, pattern, fn)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodPost, pattern, fn)
}

// Put registers a PUT route.
func (r *Router) Put(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodPut, pattern, fn)
}

// Delete registers a DELETE route.
func (r *Router) Delete(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodDelete, pattern, fn)
}

// Patch registers a PATCH route.
func (r *Router) Patch(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodPatch, pattern, fn)
}

// Options registers an OPTIONS route.
func (r *Router) Options(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodOptions, pattern, fn)
}

// Head registers a HEAD route.
func (r *Router) Head(pattern string, fn func(*transport.Context) *protocol.Response) {
	r.HandleFunc(protocol.MethodHead, pattern, fn)
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	return len(r.routes)
}

// Serve dispatches c to the first route matching its method and path and
// replaces c.Params with that route's captures. It implements
// transport.Handler.
func (r *Router) Serve(c *transport.Context) *protocol.Response {
	method, path := c.Request.Method(), c.Request.Path()
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		params, ok := rt.pattern.Match(path)
		if !ok {
			continue
		}
		debug.Log("router", "route matched", "method", method, "path", path, "pattern", rt.pattern.String())
		c.Params = params
		return rt.handler.Serve(c)
	}
	debug.Log("router", "no route", "method", method, "path", path)
	return protocol.Empty(protocol.StatusNotFound)
}
