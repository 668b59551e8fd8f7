// Package transport defines the request context, handler interfaces and
// middleware pipeline that sit between the connection engine and the
// application.
//
// The connection engine parses one request at a time, wraps it in a
// [Context] and hands it to a single [Handler]. Everything an application
// plugs in (routing, authentication, caching, tracing) integrates through
// that one contract: it receives a Context and returns a
// *protocol.Response.
//
// # Context
//
// A Context bundles the parsed request, the path parameters extracted by
// the router, and an [Extensions] store for per-request side-channel data.
// Extensions are keyed by typed [ExtensionKey] values, so every kind of data
// attached to a request is declared once as a package-level key. The
// well-known keys ([RequestIDKey], [TraceIDKey], [PeerAddrKey],
// [StartTimeKey]) are set by the engine and the built-in middleware.
//
// # Pipeline
//
// A [Pipeline] is an ordered list of [Middleware] units followed by an
// optional terminal Handler. Each unit receives a [Next] cursor and may
// forward to the rest of the chain, short-circuit with its own response, or
// decorate the response returned downstream. A cursor can be run once;
// running it again panics with [ErrCursorReused].
//
// Built-in units provide panic recovery, request ID assignment
// (X-Request-ID), structured request logging via log/slog and CORS.
package transport
