// Package protocol implements the HTTP/1.1 wire codec for rttp.
//
// It provides the core protocol types and their wire representation:
//   - [Headers]: case-insensitive, order-preserving, multi-valued header storage
//   - [Method] and [StatusCode]: request verbs and response status codes
//   - [Request]: an immutable request parsed from a byte buffer by [ParseRequest]
//   - [Response]: a mutable response builder, serialized by [Response.WriteTo]
//
// Parsing is incremental-friendly: [ParseRequest] may be called repeatedly on a
// growing buffer and reports [ErrIncomplete] until the header block has been
// terminated. Structurally invalid input yields a [*ParseError] or a
// [*MissingFieldError]; the parser never panics on malformed data.
//
// The package performs no network I/O. Bodies are buffered whole; chunked
// transfer-encoding is not supported.
package protocol
