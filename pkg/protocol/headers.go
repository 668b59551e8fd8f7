package protocol

import (
	"iter"
	"strings"
)

// field is a single header line as received or inserted.
type field struct {
	name  string
	value string
}

// Headers is a case-insensitive, multi-value HTTP header map.
//
// Insertion order is preserved and duplicate names are legal, so fields such
// as Set-Cookie can carry several values. Name comparisons ignore ASCII case
// everywhere (lookup, removal, containment). The zero value is an empty map
// ready to use. A Headers value belongs to exactly one request or response.
type Headers struct {
	fields []field
}

// NewHeaders returns an empty header map with room for n entries.
func NewHeaders(n int) Headers {
	return Headers{fields: make([]field, 0, n)}
}

// Add appends a header entry. Existing entries with the same name are kept.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, field{name: name, value: value})
}

// Set replaces every entry named name with a single entry. The new entry is
// appended after the remaining headers.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Get returns the value of the first entry matching name.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if equalFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

// Value is like Get but returns an empty string when name is absent.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Values returns a lazy sequence over all values whose name matches, in
// insertion order.
func (h Headers) Values(name string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range h.fields {
			if !equalFold(f.name, name) {
				continue
			}
			if !yield(f.value) {
				return
			}
		}
	}
}

// Del removes all entries matching name and reports whether any were removed.
func (h *Headers) Del(name string) bool {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !equalFold(f.name, name) {
			kept = append(kept, f)
		}
	}
	removed := len(kept) != len(h.fields)
	clear(h.fields[len(kept):])
	h.fields = kept
	return removed
}

// Has reports whether at least one entry matches name.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len returns the number of entries, counting duplicates.
func (h Headers) Len() int {
	return len(h.fields)
}

// All returns a sequence over every (name, value) entry in insertion order.
// Names are yielded as they were inserted.
func (h Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, f := range h.fields {
			if !yield(f.name, f.value) {
				return
			}
		}
	}
}

// Clone returns a deep copy of h.
func (h Headers) Clone() Headers {
	if h.fields == nil {
		return Headers{}
	}
	fields := make([]field, len(h.fields))
	copy(fields, h.fields)
	return Headers{fields: fields}
}

// String renders the headers in wire form, one CRLF-terminated line each.
func (h Headers) String() string {
	var sb strings.Builder
	for _, f := range h.fields {
		sb.WriteString(f.name)
		sb.WriteString(": ")
		sb.WriteString(f.value)
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// equalFold compares header names ignoring ASCII case only. Header names are
// tokens, so Unicode case folding (strings.EqualFold) would be too lenient.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
