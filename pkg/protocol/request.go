package protocol

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Request is an HTTP/1.x request. It is immutable once parsed: accessors
// return copies of mutable state, and WithBody returns a new Request.
type Request struct {
	method        Method
	path          string
	rawQuery      string
	query         map[string]string
	minor         int
	headers       Headers
	contentLength int64
	body          []byte
}

// NewRequest builds a Request without going through the wire codec. The
// target may carry a query string. It is intended for tests and for
// collaborators that synthesize requests.
func NewRequest(method Method, target string, minor int, headers Headers, body []byte) *Request {
	path, rawQuery, _ := strings.Cut(target, "?")
	r := &Request{
		method:   method,
		path:     path,
		rawQuery: rawQuery,
		query:    parseQuery(rawQuery),
		minor:    minor,
		headers:  headers.Clone(),
		body:     slices.Clone(body),
	}
	r.contentLength = int64(len(body))
	return r
}

// Method returns the request method.
func (r *Request) Method() Method {
	return r.method
}

// Path returns the request path without the query string.
func (r *Request) Path() string {
	return r.path
}

// RawQuery returns the query string as received, without the leading '?'.
// Every pair is preserved, including repeated keys.
func (r *Request) RawQuery() string {
	return r.rawQuery
}

// QueryParam returns the decoded value for key. When a key is repeated in
// the query string the last occurrence wins; use RawQuery to see every pair.
// Only '+' is decoded (to a space); percent-escapes are left as received.
func (r *Request) QueryParam(key string) (string, bool) {
	v, ok := r.query[key]
	return v, ok
}

// QueryParams returns a copy of the decoded query lookup.
func (r *Request) QueryParams() map[string]string {
	return maps.Clone(r.query)
}

// Version returns the minor protocol version: 0 for HTTP/1.0, 1 for HTTP/1.1.
func (r *Request) Version() int {
	return r.minor
}

// Proto returns the protocol version string, e.g. "HTTP/1.1".
func (r *Request) Proto() string {
	if r.minor == 0 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() Headers {
	return r.headers.Clone()
}

// ContentLength returns the declared body length, or 0 when no
// Content-Length header was sent.
func (r *Request) ContentLength() int64 {
	return r.contentLength
}

// Body returns the request body. Callers must not modify the returned slice.
func (r *Request) Body() []byte {
	return r.body
}

// KeepAlive reports whether the connection should stay open after this
// request. An explicit "close" or "keep-alive" token in the Connection header
// decides; otherwise HTTP/1.1 defaults to keep-alive and HTTP/1.0 to close.
func (r *Request) KeepAlive() bool {
	values := slices.Collect(r.headers.Values("Connection"))
	if httpguts.HeaderValuesContainsToken(values, "close") {
		return false
	}
	if httpguts.HeaderValuesContainsToken(values, "keep-alive") {
		return true
	}
	return r.minor == 1
}

// BodyEnd returns the buffer offset just past the body, given the body offset
// returned by ParseRequest.
func (r *Request) BodyEnd(offset int) int {
	return offset + int(r.contentLength)
}

// BodySatisfied reports whether a buffer of length buffered holds the whole
// declared body that starts at offset.
func (r *Request) BodySatisfied(buffered, offset int) bool {
	return buffered >= r.BodyEnd(offset)
}

// WithBody returns a copy of r whose body is an exact copy of b.
func (r *Request) WithBody(b []byte) *Request {
	r2 := *r
	r2.body = slices.Clone(b)
	if r2.body == nil {
		r2.body = []byte{}
	}
	return &r2
}

// parseQuery decodes a raw query string. Pairs are split on '&' and then on
// the first '='; '+' becomes a space; a missing value is the empty string.
// Later duplicates overwrite earlier ones.
func parseQuery(raw string) map[string]string {
	params := make(map[string]string)
	if raw == "" {
		return params
	}
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[strings.ReplaceAll(key, "+", " ")] = strings.ReplaceAll(value, "+", " ")
	}
	return params
}
