package protocol

import "strconv"

// StatusCode is an HTTP response status code. Only the codes declared below
// have canonical reason phrases.
type StatusCode uint16

const (
	StatusContinue           StatusCode = 100
	StatusSwitchingProtocols StatusCode = 101

	StatusOK             StatusCode = 200
	StatusCreated        StatusCode = 201
	StatusAccepted       StatusCode = 202
	StatusNoContent      StatusCode = 204
	StatusPartialContent StatusCode = 206

	StatusMovedPermanently  StatusCode = 301
	StatusFound             StatusCode = 302
	StatusSeeOther          StatusCode = 303
	StatusNotModified       StatusCode = 304
	StatusTemporaryRedirect StatusCode = 307
	StatusPermanentRedirect StatusCode = 308

	StatusBadRequest           StatusCode = 400
	StatusUnauthorized         StatusCode = 401
	StatusForbidden            StatusCode = 403
	StatusNotFound             StatusCode = 404
	StatusMethodNotAllowed     StatusCode = 405
	StatusConflict             StatusCode = 409
	StatusGone                 StatusCode = 410
	StatusLengthRequired       StatusCode = 411
	StatusPayloadTooLarge      StatusCode = 413
	StatusURITooLong           StatusCode = 414
	StatusUnsupportedMediaType StatusCode = 415
	StatusUnprocessableEntity  StatusCode = 422
	StatusTooManyRequests      StatusCode = 429

	StatusInternalServerError     StatusCode = 500
	StatusNotImplemented          StatusCode = 501
	StatusBadGateway              StatusCode = 502
	StatusServiceUnavailable      StatusCode = 503
	StatusGatewayTimeout          StatusCode = 504
	StatusHTTPVersionNotSupported StatusCode = 505
)

var reasons = map[StatusCode]string{
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",

	StatusOK:             "OK",
	StatusCreated:        "Created",
	StatusAccepted:       "Accepted",
	StatusNoContent:      "No Content",
	StatusPartialContent: "Partial Content",

	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:           "Bad Request",
	StatusUnauthorized:         "Unauthorized",
	StatusForbidden:            "Forbidden",
	StatusNotFound:             "Not Found",
	StatusMethodNotAllowed:     "Method Not Allowed",
	StatusConflict:             "Conflict",
	StatusGone:                 "Gone",
	StatusLengthRequired:       "Length Required",
	StatusPayloadTooLarge:      "Payload Too Large",
	StatusURITooLong:           "URI Too Long",
	StatusUnsupportedMediaType: "Unsupported Media Type",
	StatusUnprocessableEntity:  "Unprocessable Entity",
	StatusTooManyRequests:      "Too Many Requests",

	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusBadGateway:              "Bad Gateway",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusGatewayTimeout:          "Gateway Timeout",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// Reason returns the canonical reason phrase, or "Unknown Status" for codes
// outside the declared set.
func (s StatusCode) Reason() string {
	if r, ok := reasons[s]; ok {
		return r
	}
	return "Unknown Status"
}

// Code returns the numeric status code.
func (s StatusCode) Code() int {
	return int(s)
}

// Class returns the status class label, e.g. "2xx".
func (s StatusCode) Class() string {
	return strconv.Itoa(int(s)/100) + "xx"
}

// String returns "<code> <reason>", the form used on the status line.
func (s StatusCode) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}
