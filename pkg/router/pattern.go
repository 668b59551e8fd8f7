package router

import "strings"

// WildcardParam is the capture name under which a wildcard pattern stores
// the matched remainder of the path.
const WildcardParam = "wildcard"

// Kind is the shape of a compiled pattern.
type Kind int

const (
	// Exact patterns match one literal path.
	Exact Kind = iota
	// Parameterized patterns match a fixed number of segments, some of
	// which are named captures.
	Parameterized
	// Wildcard patterns match any path starting with a literal prefix.
	Wildcard
)

var kindNames = [...]string{
	Exact:         "exact",
	Parameterized: "parameterized",
	Wildcard:      "wildcard",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

type segment struct {
	value   string
	capture bool
}

// Pattern is a compiled route pattern. The zero value matches nothing.
type Pattern struct {
	raw      string
	kind     Kind
	literal  string
	segments []segment
}

// Compile turns a route pattern into a matcher.
//
// A trailing slash is ignored except on the root pattern. A pattern ending
// in "/*" is a wildcard; otherwise a pattern with any segment starting with
// ':' is parameterized; otherwise it is matched exactly.
func Compile(pattern string) Pattern {
	p := Pattern{raw: pattern}
	norm := normalize(pattern)

	if prefix, ok := strings.CutSuffix(norm, "/*"); ok {
		p.kind = Wildcard
		p.literal = prefix
		return p
	}

	segs := splitSegments(norm)
	for _, s := range segs {
		if strings.HasPrefix(s, ":") {
			p.kind = Parameterized
			break
		}
	}
	if p.kind != Parameterized {
		p.kind = Exact
		p.literal = norm
		return p
	}

	p.segments = make([]segment, len(segs))
	for i, s := range segs {
		if name, ok := strings.CutPrefix(s, ":"); ok {
			p.segments[i] = segment{value: name, capture: true}
		} else {
			p.segments[i] = segment{value: s}
		}
	}
	return p
}

// String returns the pattern as it was registered.
func (p Pattern) String() string {
	return p.raw
}

// Kind returns the pattern shape.
func (p Pattern) Kind() Kind {
	return p.kind
}

// Match tests path against the pattern and returns the captured parameters.
// A successful match with no captures returns an empty, non-nil map.
func (p Pattern) Match(path string) (map[string]string, bool) {
	if p.raw == "" {
		return nil, false
	}
	path = normalize(path)

	switch p.kind {
	case Exact:
		if path != p.literal {
			return nil, false
		}
		return map[string]string{}, true

	case Parameterized:
		parts := splitSegments(path)
		if len(parts) != len(p.segments) {
			return nil, false
		}
		params := make(map[string]string, len(p.segments))
		for i, seg := range p.segments {
			if seg.capture {
				params[seg.value] = parts[i]
				continue
			}
			if seg.value != parts[i] {
				return nil, false
			}
		}
		return params, true

	case Wildcard:
		rest, ok := strings.CutPrefix(path, p.literal)
		if !ok {
			return nil, false
		}
		return map[string]string{WildcardParam: rest}, true
	}
	return nil, false
}

// normalize strips one trailing slash from anything but the root path.
func normalize(s string) string {
	if len(s) > 1 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

func splitSegments(path string) []string {
	var out []string
	for s := range strings.SplitSeq(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
