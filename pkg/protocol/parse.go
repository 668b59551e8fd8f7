package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// MaxHeaders is the maximum number of header lines accepted in one request.
const MaxHeaders = 64

// maxContentLength bounds the declared body length so offset arithmetic can
// never overflow; the connection engine enforces the real, much smaller cap.
const maxContentLength = 1 << 40

// ParseRequest attempts to extract one request header block from buf.
//
// On success it returns the request and the offset at which the body begins.
// The returned request carries the body bytes already present in buf, up to
// the declared Content-Length; callers use [Request.BodySatisfied] and
// [Request.WithBody] to attach the full body once it has arrived.
//
// When buf holds a valid but unterminated prefix, ParseRequest returns
// [ErrIncomplete]. Malformed input yields a [*ParseError] or a
// [*MissingFieldError].
func ParseRequest(buf []byte) (*Request, int, error) {
	pos, ok := skipLeadingBlankLines(buf)
	if !ok {
		return nil, 0, ErrIncomplete
	}

	line, next, ok := nextLine(buf, pos)
	if !ok {
		if err := checkPartialRequestLine(buf[pos:]); err != nil {
			return nil, 0, err
		}
		return nil, 0, ErrIncomplete
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, 0, err
	}
	pos = next

	req.headers = NewHeaders(8)
	for {
		line, next, ok := nextLine(buf, pos)
		if !ok {
			if err := checkPartialHeaderLine(buf[pos:]); err != nil {
				return nil, 0, err
			}
			return nil, 0, ErrIncomplete
		}
		pos = next
		if len(line) == 0 {
			break
		}
		if req.headers.Len() == MaxHeaders {
			return nil, 0, parseErr(KindTooManyHeaders, "more than %d header fields", MaxHeaders)
		}
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, 0, err
		}
		req.headers.Add(name, value)
	}

	if req.headers.Has("Transfer-Encoding") {
		return nil, 0, parseErr(KindTransferEncoding, "%q is not supported", req.headers.Value("Transfer-Encoding"))
	}
	cl, err := parseContentLength(req.headers)
	if err != nil {
		return nil, 0, err
	}
	req.contentLength = cl

	end := min(len(buf), pos+int(cl))
	req.body = bytes.Clone(buf[pos:end])
	if req.body == nil {
		req.body = []byte{}
	}
	return req, pos, nil
}

// skipLeadingBlankLines skips empty lines sent before the request line
// (RFC 9112 §2.2). It returns false if buf ends in the middle of a CRLF.
func skipLeadingBlankLines(buf []byte) (int, bool) {
	pos := 0
	for pos < len(buf) {
		switch {
		case buf[pos] == '\n':
			pos++
		case buf[pos] == '\r':
			if pos+1 == len(buf) {
				return pos, false
			}
			if buf[pos+1] != '\n' {
				return pos, true
			}
			pos += 2
		default:
			return pos, true
		}
	}
	return pos, true
}

// nextLine returns the line starting at pos without its terminator. Lines end
// with CRLF or a bare LF.
func nextLine(buf []byte, pos int) ([]byte, int, bool) {
	i := bytes.IndexByte(buf[pos:], '\n')
	if i < 0 {
		return nil, pos, false
	}
	line := buf[pos : pos+i]
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return line, pos + i + 1, true
}

func parseRequestLine(line []byte) (*Request, error) {
	parts := strings.Split(string(line), " ")
	if parts[0] == "" {
		return nil, &MissingFieldError{Field: "method"}
	}
	if len(parts) < 2 || parts[1] == "" {
		return nil, &MissingFieldError{Field: "path"}
	}
	if len(parts) < 3 || parts[2] == "" {
		return nil, &MissingFieldError{Field: "version"}
	}
	if len(parts) > 3 {
		return nil, parseErr(KindRequestLine, "%q", line)
	}

	method, target, proto := parts[0], parts[1], parts[2]
	if !isToken(method) {
		return nil, parseErr(KindMethod, "%q", method)
	}
	if !validTarget(target) {
		return nil, parseErr(KindTarget, "%q", target)
	}
	minor, ok := parseVersion(proto)
	if !ok {
		return nil, parseErr(KindVersion, "%q", proto)
	}

	path, rawQuery, _ := strings.Cut(target, "?")
	return &Request{
		method:   Method(method),
		path:     path,
		rawQuery: rawQuery,
		query:    parseQuery(rawQuery),
		minor:    minor,
	}, nil
}

func parseVersion(proto string) (int, bool) {
	switch proto {
	case "HTTP/1.1":
		return 1, true
	case "HTTP/1.0":
		return 0, true
	}
	return 0, false
}

func parseHeaderLine(line []byte) (string, string, error) {
	if line[0] == ' ' || line[0] == '\t' {
		return "", "", parseErr(KindHeader, "obsolete line folding")
	}
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", parseErr(KindHeader, "%q", line)
	}
	name := string(line[:colon])
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", parseErr(KindHeader, "bad field name %q", name)
	}
	value := strings.Trim(string(line[colon+1:]), " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", parseErr(KindHeader, "bad value for %s", name)
	}
	return name, value, nil
}

// parseContentLength validates every Content-Length value. Repeated values
// (as separate lines or a comma separated list) must agree.
func parseContentLength(h Headers) (int64, error) {
	var (
		n    int64
		seen bool
	)
	for raw := range h.Values("Content-Length") {
		for v := range strings.SplitSeq(raw, ",") {
			v = strings.TrimSpace(v)
			if v == "" || strings.TrimLeft(v, "0123456789") != "" {
				return 0, parseErr(KindContentLength, "%q", raw)
			}
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil || parsed > maxContentLength {
				return 0, parseErr(KindContentLength, "%q", raw)
			}
			if seen && parsed != n {
				return 0, parseErr(KindContentLength, "conflicting values")
			}
			n, seen = parsed, true
		}
	}
	return n, nil
}

// checkPartialRequestLine rejects an unterminated request line whose method
// prefix already contains non-token bytes, so garbage is refused without
// waiting for the size cap.
func checkPartialRequestLine(partial []byte) error {
	method, _, _ := bytes.Cut(partial, []byte{' '})
	for _, b := range method {
		if b == '\r' {
			continue
		}
		if !httpguts.IsTokenRune(rune(b)) {
			return parseErr(KindMethod, "%q", method)
		}
	}
	return nil
}

// checkPartialHeaderLine validates the name prefix of an unterminated header
// line.
func checkPartialHeaderLine(partial []byte) error {
	if len(partial) == 0 {
		return nil
	}
	if partial[0] == ' ' || partial[0] == '\t' {
		return parseErr(KindHeader, "obsolete line folding")
	}
	name, _, _ := bytes.Cut(partial, []byte{':'})
	for _, b := range name {
		if b == '\r' {
			continue
		}
		if !httpguts.IsTokenRune(rune(b)) {
			return parseErr(KindHeader, "bad field name %q", name)
		}
	}
	return nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// validTarget rejects targets containing whitespace or control bytes.
func validTarget(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] == 0x7f {
			return false
		}
	}
	return true
}
