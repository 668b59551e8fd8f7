package protocol

// Method is an HTTP request method. The standard verbs are predefined; any
// other token is carried verbatim as an extension method.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodPatch   Method = "PATCH"
	MethodConnect Method = "CONNECT"
	MethodTrace   Method = "TRACE"
)

// String returns the method token.
func (m Method) String() string {
	return string(m)
}

// IsCustom reports whether m is an extension method rather than one of the
// standard verbs.
func (m Method) IsCustom() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead,
		MethodOptions, MethodPatch, MethodConnect, MethodTrace:
		return false
	}
	return true
}

// IsSafe reports whether m is a safe method (RFC 9110 §9.2.1).
func (m Method) IsSafe() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodTrace:
		return true
	}
	return false
}

// IsIdempotent reports whether m is idempotent (RFC 9110 §9.2.2).
func (m Method) IsIdempotent() bool {
	switch m {
	case MethodGet, MethodHead, MethodPut, MethodDelete, MethodOptions, MethodTrace:
		return true
	}
	return false
}
