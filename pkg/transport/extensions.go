package transport

import (
	"net"
	"time"
)

// Well-known extension keys.
var (
	// RequestIDKey holds the request ID assigned by the RequestID middleware.
	RequestIDKey = NewExtensionKey[string]("request_id")

	// TraceIDKey holds the trace ID of the span started for the request.
	TraceIDKey = NewExtensionKey[string]("trace_id")

	// PeerAddrKey holds the remote address of the connection.
	PeerAddrKey = NewExtensionKey[net.Addr]("peer_addr")

	// StartTimeKey holds the time the request was dispatched.
	StartTimeKey = NewExtensionKey[time.Time]("start_time")
)

type extensionID struct {
	name string
}

// ExtensionKey identifies one kind of value in an [Extensions] store. Keys
// compare by identity: two keys created with the same name are distinct.
type ExtensionKey[T any] struct {
	id *extensionID
}

// NewExtensionKey declares a new key for values of type T. Keys are meant to
// be created once, as package-level variables.
func NewExtensionKey[T any](name string) ExtensionKey[T] {
	return ExtensionKey[T]{id: &extensionID{name: name}}
}

// Name returns the name the key was declared with.
func (k ExtensionKey[T]) Name() string {
	if k.id == nil {
		return ""
	}
	return k.id.name
}

// Set stores v and returns the value it replaced, if any.
func (k ExtensionKey[T]) Set(e *Extensions, v T) (T, bool) {
	prev, ok := k.Lookup(e)
	if e.values == nil {
		e.values = make(map[*extensionID]any)
	}
	e.values[k.id] = v
	return prev, ok
}

// Get returns the stored value, or the zero value of T when absent.
func (k ExtensionKey[T]) Get(e *Extensions) T {
	v, _ := k.Lookup(e)
	return v
}

// Lookup returns the stored value and whether it was present.
func (k ExtensionKey[T]) Lookup(e *Extensions) (T, bool) {
	var zero T
	if e == nil || e.values == nil {
		return zero, false
	}
	raw, ok := e.values[k.id]
	if !ok {
		return zero, false
	}
	return raw.(T), true
}

// Update replaces the stored value with fn applied to it. fn receives the
// zero value and false when nothing is stored yet.
func (k ExtensionKey[T]) Update(e *Extensions, fn func(T, bool) T) T {
	v := fn(k.Lookup(e))
	k.Set(e, v)
	return v
}

// Delete removes the stored value and returns it.
func (k ExtensionKey[T]) Delete(e *Extensions) (T, bool) {
	v, ok := k.Lookup(e)
	if ok {
		delete(e.values, k.id)
	}
	return v, ok
}

// Extensions is a per-request store holding at most one value per
// [ExtensionKey]. The zero value is ready to use. An Extensions store is
// owned by a single Context and must not be shared between goroutines.
type Extensions struct {
	values map[*extensionID]any
}

// Len returns the number of stored values.
func (e *Extensions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.values)
}
