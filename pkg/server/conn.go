package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"time"

	rdebug "github.com/rhuss/rttp/pkg/debug"
	"github.com/rhuss/rttp/pkg/observability"
	"github.com/rhuss/rttp/pkg/protocol"
	"github.com/rhuss/rttp/pkg/transport"
)

// connState is the phase of a connection's request/response cycle.
type connState int

const (
	stateReading connState = iota
	stateParsing
	stateAwaitingBody
	stateDispatching
	stateWriting
	stateClosing
)

func (s connState) String() string {
	switch s {
	case stateReading:
		return "reading"
	case stateParsing:
		return "parsing"
	case stateAwaitingBody:
		return "awaiting_body"
	case stateDispatching:
		return "dispatching"
	case stateWriting:
		return "writing"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// conn is one accepted connection. Its serve loop owns the read buffer; the
// registry only touches the idle flag and the underlying net.Conn.
type conn struct {
	srv *Server
	nc  net.Conn

	// buf holds bytes received but not yet consumed. Its capacity grows
	// geometrically up to MaxRequestSize+1 so an oversized request is
	// detectable without buffering more than one byte past the limit.
	buf []byte

	mu   sync.Mutex
	idle bool

	closeOnce sync.Once
}

func newConn(srv *Server, nc net.Conn) *conn {
	return &conn{
		srv: srv,
		nc:  nc,
		buf: make([]byte, 0, srv.config.InitialBufferSize),
	}
}

// exchange is the request currently moving through the state machine.
type exchange struct {
	req    *protocol.Request
	offset int
	resp   *protocol.Response
	// reqDeadline bounds reading the current request; zero means none.
	reqDeadline time.Time
}

// serve runs the connection until it closes. Requests are handled strictly
// in order; bytes pipelined behind a request are parsed before the next
// read.
func (c *conn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	observability.ConnectionsActive.Inc()
	observability.ConnectionsTotal.Inc()
	defer observability.ConnectionsActive.Dec()
	defer c.close()

	peer := c.nc.RemoteAddr().String()
	served := 0
	state := stateReading
	var ex exchange

	for {
		rdebug.Trace("server", "connection state", "peer", peer, "state", state.String())

		switch state {
		case stateReading:
			var err error
			if len(c.buf) == 0 {
				err = c.readRequestBytes(&ex, served)
			} else {
				err = c.read(ex.reqDeadline)
			}
			if err != nil {
				c.logReadError(err, peer)
				return
			}
			state = stateParsing

		case stateParsing:
			next, resp := c.parse(&ex)
			if resp != nil {
				ex.resp = resp
			}
			state = next

		case stateAwaitingBody:
			if err := c.read(ex.reqDeadline); err != nil {
				c.logReadError(err, peer)
				return
			}
			if ex.req.BodySatisfied(len(c.buf), ex.offset) {
				ex.req = ex.req.WithBody(c.buf[ex.offset:ex.req.BodyEnd(ex.offset)])
				state = stateDispatching
			}

		case stateDispatching:
			ex.resp = c.dispatch(ctx, ex.req)
			state = stateWriting

		case stateWriting:
			if err := c.write(ex.resp); err != nil {
				observability.TransportErrorsTotal.WithLabelValues("write").Inc()
				rdebug.Log("server", "write failed", "peer", peer, "error", err.Error())
				return
			}
			if ex.req == nil || !ex.resp.KeepAlive() {
				state = stateClosing
				continue
			}
			served++
			c.consume(ex.req.BodyEnd(ex.offset))
			ex = exchange{}
			if len(c.buf) > 0 {
				state = stateParsing
			} else {
				state = stateReading
			}

		case stateClosing:
			rdebug.Log("server", "connection closed", "peer", peer, "requests", served)
			return
		}
	}
}

// parse tries to extract a request from the buffer and picks the next state.
// A non-nil response is an error reply that ends the connection.
func (c *conn) parse(ex *exchange) (connState, *protocol.Response) {
	limit := c.srv.config.MaxRequestSize

	req, offset, err := protocol.ParseRequest(c.buf)
	if err != nil {
		if !errors.Is(err, protocol.ErrIncomplete) {
			return stateWriting, c.parseErrorResponse(err)
		}
		if len(c.buf) > limit {
			observability.ProtocolErrorsTotal.WithLabelValues("too_large").Inc()
			return stateWriting, errorResponse(protocol.StatusPayloadTooLarge, "Request entity too large")
		}
		c.startRequestClock(ex)
		return stateReading, nil
	}

	if int64(offset)+req.ContentLength() > int64(limit) {
		observability.ProtocolErrorsTotal.WithLabelValues("too_large").Inc()
		return stateWriting, errorResponse(protocol.StatusPayloadTooLarge, "Request entity too large")
	}

	rdebug.Log("protocol", "request parsed",
		"method", req.Method().String(),
		"path", req.Path(),
		"proto", req.Proto(),
		"content_length", req.ContentLength(),
	)
	if rdebug.TraceIsEnabled("protocol") {
		rdebug.Raw("protocol", string(c.buf[:min(len(c.buf), req.BodyEnd(offset))]))
	}

	ex.req = req
	ex.offset = offset
	if !req.BodySatisfied(len(c.buf), offset) {
		c.startRequestClock(ex)
		return stateAwaitingBody, nil
	}
	return stateDispatching, nil
}

// startRequestClock arms the read deadline for a request whose bytes are
// still arriving, unless it is already running.
func (c *conn) startRequestClock(ex *exchange) {
	if ex.reqDeadline.IsZero() && c.srv.config.ReadTimeout > 0 {
		ex.reqDeadline = time.Now().Add(c.srv.config.ReadTimeout)
	}
}

// parseErrorResponse maps a parse failure to the reply sent before closing.
func (c *conn) parseErrorResponse(err error) *protocol.Response {
	var pe *protocol.ParseError
	var mf *protocol.MissingFieldError
	switch {
	case errors.As(err, &pe):
		observability.ProtocolErrorsTotal.WithLabelValues(pe.Kind.String()).Inc()
		if pe.Kind == protocol.KindTransferEncoding {
			return errorResponse(protocol.StatusNotImplemented, "Not Implemented: "+err.Error())
		}
	case errors.As(err, &mf):
		observability.ProtocolErrorsTotal.WithLabelValues("missing_field").Inc()
	}
	rdebug.Log("protocol", "malformed request", "peer", c.nc.RemoteAddr().String(), "error", err.Error())
	return errorResponse(protocol.StatusBadRequest, "Bad Request: "+err.Error())
}

// dispatch runs the handler for req and settles the response's connection
// disposition. A panicking handler, a missing response or a response that
// was already serialized all produce a 500 and close the connection.
func (c *conn) dispatch(ctx context.Context, req *protocol.Request) (resp *protocol.Response) {
	tc := transport.NewContext(ctx, req)
	transport.PeerAddrKey.Set(&tc.Extensions, c.nc.RemoteAddr())
	transport.StartTimeKey.Set(&tc.Extensions, time.Now())

	defer func() {
		if r := recover(); r != nil {
			c.srv.logger.Error("handler panic",
				slog.String("method", req.Method().String()),
				slog.String("path", req.Path()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			resp = errorResponse(protocol.StatusInternalServerError, "Internal Server Error")
		}
	}()

	resp = c.srv.handler.Serve(tc)
	switch {
	case resp == nil:
		c.srv.logger.Error("handler returned no response",
			slog.String("method", req.Method().String()),
			slog.String("path", req.Path()),
		)
		return errorResponse(protocol.StatusInternalServerError, transport.NoResponseMessage)
	case resp.Finalized():
		c.srv.logger.Error("handler returned a response that was already written",
			slog.String("method", req.Method().String()),
			slog.String("path", req.Path()),
		)
		return errorResponse(protocol.StatusInternalServerError, "Internal Server Error")
	}

	resp.SetKeepAlive(req.KeepAlive() && resp.KeepAlive() && !c.srv.shuttingDown.Load())
	if req.Method() == protocol.MethodHead {
		resp.OmitBody()
	}
	return resp
}

// write serializes resp to the connection under the write deadline.
func (c *conn) write(resp *protocol.Response) error {
	if d := c.srv.config.WriteTimeout; d > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(d)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	var n int64
	var err error
	if rdebug.TraceIsEnabled("protocol") {
		raw := resp.Bytes()
		rdebug.Raw("protocol", string(raw))
		var wn int
		wn, err = c.nc.Write(raw)
		n = int64(wn)
	} else {
		n, err = resp.WriteTo(c.nc)
	}
	rdebug.Trace("server", "response written", "status", resp.Status().Code(), "bytes", n)
	return err
}

// readRequestBytes waits for the first bytes of the next request. While
// waiting the connection is idle and may be interrupted by shutdown.
func (c *conn) readRequestBytes(ex *exchange, served int) error {
	wait := c.srv.config.ReadTimeout
	if served > 0 {
		wait = c.srv.config.IdleTimeout
	}
	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}

	c.mu.Lock()
	if err := c.nc.SetReadDeadline(deadline); err != nil {
		c.mu.Unlock()
		return err
	}
	c.idle = true
	c.mu.Unlock()

	if c.srv.shuttingDown.Load() {
		return errShutdownIdle
	}

	err := c.fill()

	c.mu.Lock()
	c.idle = false
	if err == nil {
		if d := c.srv.config.ReadTimeout; d > 0 {
			ex.reqDeadline = time.Now().Add(d)
		}
		err = c.nc.SetReadDeadline(ex.reqDeadline)
	}
	c.mu.Unlock()

	if err != nil && c.srv.shuttingDown.Load() && isTimeout(err) {
		return errShutdownIdle
	}
	return err
}

// read appends more bytes to the buffer for the request in progress.
func (c *conn) read(deadline time.Time) error {
	if err := c.nc.SetReadDeadline(deadline); err != nil {
		return err
	}
	return c.fill()
}

// fill performs one read into the buffer, growing it geometrically up to
// one byte past the request size limit.
func (c *conn) fill() error {
	if len(c.buf) == cap(c.buf) {
		limit := c.srv.config.MaxRequestSize + 1
		if cap(c.buf) >= limit {
			return nil
		}
		grown := make([]byte, len(c.buf), min(max(2*cap(c.buf), 1), limit))
		copy(grown, c.buf)
		c.buf = grown
	}
	n, err := c.nc.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]
	if n > 0 {
		rdebug.Trace("server", "bytes read", "n", n, "buffered", len(c.buf))
		return nil
	}
	if err == nil {
		// A zero-byte read means the peer is gone.
		err = io.EOF
	}
	return err
}

// consume drops the first n bytes of the buffer, keeping any pipelined
// bytes that follow.
func (c *conn) consume(n int) {
	n = min(n, len(c.buf))
	remaining := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:remaining]
}

// interruptIfIdle makes a connection blocked waiting for a new request
// return immediately. It reports whether the connection was idle.
func (c *conn) interruptIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.idle {
		return false
	}
	c.nc.SetReadDeadline(time.Now())
	return true
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.nc.Close()
	})
}

// errShutdownIdle ends an idle connection during shutdown.
var errShutdownIdle = errors.New("server: shutting down")

func (c *conn) logReadError(err error, peer string) {
	switch {
	case errors.Is(err, errShutdownIdle):
		rdebug.Log("server", "idle connection closed for shutdown", "peer", peer)
	case errors.Is(err, io.EOF):
		rdebug.Log("server", "peer closed connection", "peer", peer, "buffered", len(c.buf))
	case isTimeout(err):
		rdebug.Log("server", "read timeout", "peer", peer, "buffered", len(c.buf))
	case errors.Is(err, net.ErrClosed):
		rdebug.Log("server", "connection closed during read", "peer", peer)
	default:
		observability.TransportErrorsTotal.WithLabelValues("read").Inc()
		c.srv.logger.Warn("connection read failed", slog.String("peer", peer), slog.String("error", err.Error()))
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorResponse builds a reply that closes the connection once written.
func errorResponse(status protocol.StatusCode, body string) *protocol.Response {
	return protocol.Text(status, body).WithKeepAlive(false)
}
