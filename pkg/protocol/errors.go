package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete reports that the buffer holds a valid prefix of a request but
// the header block has not been terminated yet. It is the expected state
// while bytes are still arriving, not a failure.
var ErrIncomplete = errors.New("protocol: request is incomplete, more data needed")

// ErrResponseFinalized is the panic value raised when a Response is mutated
// after it has been serialized.
var ErrResponseFinalized = errors.New("protocol: response already serialized")

// ParseErrorKind classifies a structurally invalid request.
type ParseErrorKind int

const (
	KindRequestLine ParseErrorKind = iota + 1
	KindMethod
	KindTarget
	KindVersion
	KindHeader
	KindTooManyHeaders
	KindContentLength
	KindTransferEncoding
)

// String returns a short label suitable for logs and metric labels.
func (k ParseErrorKind) String() string {
	switch k {
	case KindRequestLine:
		return "request_line"
	case KindMethod:
		return "method"
	case KindTarget:
		return "target"
	case KindVersion:
		return "version"
	case KindHeader:
		return "header"
	case KindTooManyHeaders:
		return "too_many_headers"
	case KindContentLength:
		return "content_length"
	case KindTransferEncoding:
		return "transfer_encoding"
	default:
		return "unknown"
	}
}

// ParseError reports bytes that can never form a valid request. It is
// terminal for the connection that produced them.
type ParseError struct {
	Kind ParseErrorKind
	// Detail is a human readable description of the offending input.
	Detail string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol: invalid %s", e.Kind)
	}
	return fmt.Sprintf("protocol: invalid %s: %s", e.Kind, e.Detail)
}

// MissingFieldError reports a request line that omitted the method, the
// request target or the protocol version.
type MissingFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("protocol: missing required field: %s", e.Field)
}

func parseErr(kind ParseErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
