package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

// DefaultContentType is applied to responses that carry a body but no
// Content-Type header.
const DefaultContentType = "text/plain; charset=utf-8"

// Response is a mutable HTTP response builder.
//
// Serialization through WriteTo or Bytes finalizes the response: any later
// mutation panics with ErrResponseFinalized. Content-Length and Connection
// are always computed during serialization and cannot be set by callers.
type Response struct {
	status    StatusCode
	headers   Headers
	body      []byte
	keepAlive bool
	omitBody  bool
	finalized bool
}

// NewResponse returns an empty response with the given status and
// keep-alive enabled.
func NewResponse(status StatusCode) *Response {
	return &Response{
		status:    status,
		keepAlive: true,
	}
}

// Text returns a response with a plain text body.
func Text(status StatusCode, body string) *Response {
	return NewResponse(status).WithBody([]byte(body))
}

// Empty returns a response with no body.
func Empty(status StatusCode) *Response {
	return NewResponse(status)
}

// JSON returns a response whose body is the JSON encoding of v. Encoding
// failures produce a 500 response.
func JSON(status StatusCode, v any) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		return Text(StatusInternalServerError, "failed to encode response")
	}
	return NewResponse(status).
		WithHeader("Content-Type", "application/json").
		WithBody(b)
}

// Status returns the response status.
func (r *Response) Status() StatusCode {
	return r.status
}

// SetStatus replaces the response status.
func (r *Response) SetStatus(status StatusCode) {
	r.mustBeMutable()
	r.status = status
}

// Header returns the first value of the named header.
func (r *Response) Header(name string) (string, bool) {
	return r.headers.Get(name)
}

// Headers returns a copy of the response headers.
func (r *Response) Headers() Headers {
	return r.headers.Clone()
}

// AddHeader appends a header. Multiple values for one name are preserved.
func (r *Response) AddHeader(name, value string) {
	r.mustBeMutable()
	r.headers.Add(name, value)
}

// SetHeader replaces every value of the named header.
func (r *Response) SetHeader(name, value string) {
	r.mustBeMutable()
	r.headers.Set(name, value)
}

// DelHeader removes every value of the named header and reports whether any
// existed.
func (r *Response) DelHeader(name string) bool {
	r.mustBeMutable()
	return r.headers.Del(name)
}

// WithHeader is the chaining form of AddHeader.
func (r *Response) WithHeader(name, value string) *Response {
	r.AddHeader(name, value)
	return r
}

// Body returns the response body.
func (r *Response) Body() []byte {
	return r.body
}

// SetBody replaces the body.
func (r *Response) SetBody(b []byte) {
	r.mustBeMutable()
	r.body = b
}

// WithBody is the chaining form of SetBody.
func (r *Response) WithBody(b []byte) *Response {
	r.SetBody(b)
	return r
}

// KeepAlive reports whether the connection should stay open after this
// response is written.
func (r *Response) KeepAlive() bool {
	return r.keepAlive
}

// SetKeepAlive sets the keep-alive flag, which decides the Connection header.
func (r *Response) SetKeepAlive(keepAlive bool) {
	r.mustBeMutable()
	r.keepAlive = keepAlive
}

// WithKeepAlive is the chaining form of SetKeepAlive.
func (r *Response) WithKeepAlive(keepAlive bool) *Response {
	r.SetKeepAlive(keepAlive)
	return r
}

// OmitBody makes serialization skip the body bytes while Content-Length still
// reports the body length. It is used for responses to HEAD requests.
func (r *Response) OmitBody() {
	r.mustBeMutable()
	r.omitBody = true
}

// Finalized reports whether the response has been serialized.
func (r *Response) Finalized() bool {
	return r.finalized
}

// Bytes serializes and finalizes the response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(128 + r.headers.Len()*64 + len(r.body))
	r.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo serializes the response to w and finalizes it. It implements
// io.WriterTo.
//
// The status line is followed by the caller's headers in insertion order,
// an injected Content-Type when the body is non-empty and none was set,
// Content-Length and finally Connection.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	r.mustBeMutable()
	r.finalized = true

	var head bytes.Buffer
	head.WriteString("HTTP/1.1 ")
	head.WriteString(strconv.Itoa(int(r.status)))
	head.WriteByte(' ')
	head.WriteString(r.status.Reason())
	head.WriteString("\r\n")

	for name, value := range r.headers.All() {
		if equalFold(name, "Content-Length") || equalFold(name, "Connection") {
			continue
		}
		writeHeaderLine(&head, name, value)
	}
	if len(r.body) > 0 && !r.headers.Has("Content-Type") {
		writeHeaderLine(&head, "Content-Type", DefaultContentType)
	}
	writeHeaderLine(&head, "Content-Length", strconv.Itoa(len(r.body)))
	if r.keepAlive {
		writeHeaderLine(&head, "Connection", "keep-alive")
	} else {
		writeHeaderLine(&head, "Connection", "close")
	}
	head.WriteString("\r\n")

	if len(r.body) > 0 && !r.omitBody {
		head.Write(r.body)
	}
	return head.WriteTo(w)
}

func writeHeaderLine(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func (r *Response) mustBeMutable() {
	if r.finalized {
		panic(ErrResponseFinalized)
	}
}
