package server

import (
	"sync"
)

// connRegistry tracks live connections so shutdown can interrupt idle ones
// and force-close the rest once the drain deadline passes.
//
// All methods are safe for concurrent access.
type connRegistry struct {
	mu      sync.Mutex
	entries map[*conn]struct{}
}

func newConnRegistry() *connRegistry {
	return &connRegistry{
		entries: make(map[*conn]struct{}),
	}
}

// Register adds a connection to the registry.
func (r *connRegistry) Register(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c] = struct{}{}
}

// Remove removes a connection from the registry without closing it. Called
// when a connection goroutine exits.
func (r *connRegistry) Remove(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, c)
}

// Len returns the number of registered connections.
func (r *connRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// InterruptIdle wakes every connection blocked waiting for a new request.
// Connections in the middle of an exchange are left alone; they observe the
// shutdown flag before deciding on keep-alive.
func (r *connRegistry) InterruptIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for c := range r.entries {
		if c.interruptIfIdle() {
			n++
		}
	}
	return n
}

// CloseAll closes every registered connection and returns how many were
// closed.
func (r *connRegistry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.entries {
		c.close()
	}
	return len(r.entries)
}
