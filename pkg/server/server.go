// Package server implements the HTTP/1.1 connection engine: it accepts TCP
// connections, turns the bytes read from each into requests, dispatches
// them to a transport.Handler and writes the responses back, honouring
// persistent-connection semantics.
//
// Each accepted connection is served by its own goroutine that processes
// requests strictly one at a time. The handler is shared by every
// connection and must not be mutated once Serve has been called.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/rttp/pkg/debug"
	"github.com/rhuss/rttp/pkg/observability"
	"github.com/rhuss/rttp/pkg/transport"
)

// ErrServerClosed is returned by Serve and ListenAndServe after the server
// has been shut down.
var ErrServerClosed = errors.New("server: closed")

// ListenError reports a failure to bind the listen address.
type ListenError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ListenError) Error() string {
	return fmt.Sprintf("failed to bind to %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenError) Unwrap() error {
	return e.Err
}

// Config holds configuration for the connection engine.
//
// Timeouts of zero disable the corresponding deadline.
type Config struct {
	Addr string

	// MaxRequestSize caps the bytes buffered for one request, headers and
	// body included. Larger requests are answered with 413.
	MaxRequestSize int

	// InitialBufferSize is the starting capacity of each connection's read
	// buffer.
	InitialBufferSize int

	// ReadTimeout bounds reading one request once its first byte arrived.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration

	// IdleTimeout bounds the wait for the next request on a kept-alive
	// connection.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds how long Serve waits for in-flight exchanges
	// after its context is cancelled before closing connections forcibly.
	// Zero waits indefinitely.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		MaxRequestSize:    8 << 20, // 8 MiB
		InitialBufferSize: 4096,
		ShutdownTimeout:   30 * time.Second,
		Logger:            slog.Default(),
	}
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address used by ListenAndServe.
func WithAddr(addr string) Option {
	return func(s *Server) { s.config.Addr = addr }
}

// WithMaxRequestSize sets the per-request buffer cap.
func WithMaxRequestSize(n int) Option {
	return func(s *Server) { s.config.MaxRequestSize = n }
}

// WithInitialBufferSize sets the starting read buffer capacity.
func WithInitialBufferSize(n int) Option {
	return func(s *Server) { s.config.InitialBufferSize = n }
}

// WithReadTimeout sets the per-request read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.config.ReadTimeout = d }
}

// WithWriteTimeout sets the per-response write deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.config.WriteTimeout = d }
}

// WithIdleTimeout sets the keep-alive idle deadline.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.config.IdleTimeout = d }
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.config.Logger = l }
}

// WithConfig replaces the whole configuration. A nil logger in cfg keeps
// the current one.
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		if cfg.Logger == nil {
			cfg.Logger = s.config.Logger
		}
		s.config = cfg
	}
}

// Server accepts connections and serves requests with a single handler.
type Server struct {
	handler transport.Handler
	config  Config
	logger  *slog.Logger

	conns        *connRegistry
	connWG       sync.WaitGroup
	shuttingDown atomic.Bool
	closed       atomic.Bool

	mu   sync.Mutex
	addr net.Addr
}

// New creates a server dispatching every request to handler. The handler is
// typically a transport.Pipeline ending in a router.
func New(handler transport.Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		config:  DefaultConfig(),
		conns:   newConnRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Logger == nil {
		s.config.Logger = slog.Default()
	}
	if s.config.InitialBufferSize <= 0 {
		s.config.InitialBufferSize = DefaultConfig().InitialBufferSize
	}
	if s.config.MaxRequestSize <= 0 {
		s.config.MaxRequestSize = DefaultConfig().MaxRequestSize
	}
	s.config.InitialBufferSize = min(s.config.InitialBufferSize, s.config.MaxRequestSize)
	s.logger = s.config.Logger
	return s
}

// Addr returns the address the server is listening on, or nil before Serve
// has been called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return &ListenError{Addr: s.config.Addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully: the listener is closed, idle connections are closed, and
// in-flight exchanges complete with "Connection: close" within the shutdown
// timeout. Serve returns nil after a graceful shutdown and the accept error
// if the listener fails permanently. A server cannot be reused after Serve
// returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.closed.Load() {
		ln.Close()
		return ErrServerClosed
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		s.beginShutdown(ln)
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(gctx, ctx, ln)
	})
	err := g.Wait()

	s.drain()
	s.closed.Store(true)
	if err != nil {
		s.logger.Error("server stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// acceptLoop accepts connections until the listener is closed. Temporary
// accept failures are retried with a capped exponential backoff. Connection
// goroutines run with baseCtx stripped of its cancellation so in-flight
// handlers are not aborted by shutdown.
func (s *Server) acceptLoop(ctx, baseCtx context.Context, ln net.Listener) error {
	const maxDelay = time.Second
	var delay time.Duration

	connCtx := context.WithoutCancel(baseCtx)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			observability.AcceptErrorsTotal.Inc()
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxDelay)
			}
			s.logger.Error("failed to accept connection", slog.String("error", err.Error()), slog.Duration("retry_in", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		c := newConn(s, nc)
		s.conns.Register(c)
		debug.Log("server", "connection accepted", "peer", nc.RemoteAddr().String())
		s.connWG.Go(func() {
			defer s.conns.Remove(c)
			c.serve(connCtx)
		})
	}
}

// beginShutdown stops accepting and interrupts connections waiting for a
// new request.
func (s *Server) beginShutdown(ln net.Listener) {
	s.shuttingDown.Store(true)
	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	ln.Close()
	s.conns.InterruptIdle()
}

// drain waits for connection goroutines, closing the remaining connections
// forcibly once the shutdown timeout expires. Without a timeout it waits
// for every exchange to finish.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.connWG.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if s.config.ShutdownTimeout > 0 {
		timer := time.NewTimer(s.config.ShutdownTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
	case <-timeout:
		n := s.conns.CloseAll()
		s.logger.Warn("shutdown timeout exceeded, closing connections", slog.Int("connections", n))
		<-done
	}
}

// ShuttingDown reports whether the server has begun shutting down.
func (s *Server) ShuttingDown() bool {
	return s.shuttingDown.Load()
}
