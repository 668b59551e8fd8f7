// Package debug gates verbose rttp diagnostics by subsystem.
//
// A category names the subsystem whose internals are logged:
//
//	server    accepts, connection state transitions, reads and writes
//	protocol  parsed request heads, malformed input, raw wire bytes
//	router    route matches and misses
//	pipeline  middleware progress
//	config    file discovery and overrides
//	all       every category
//
// RTTP_DEBUG (or log.debug) selects categories as a comma separated list.
// The slog level, set by RTTP_LOG_LEVEL or log.level, decides how much of an
// enabled category is shown: DEBUG for events, TRACE for wire dumps.
//
//	debug.Log("router", "route matched", "pattern", p)
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// LevelTrace sits one step below slog.LevelDebug. Raw request and response
// bytes are only dumped at this level.
const LevelTrace = slog.LevelDebug - 4

// categories is written by init and Init only, before any goroutine reads it.
var categories map[string]bool

// rawOutput receives Raw dumps.
var rawOutput io.Writer = os.Stderr

func init() {
	// Tests and early startup code see RTTP_DEBUG before Init runs.
	categories = parseCategories(os.Getenv("RTTP_DEBUG"))
}

// Init applies the log section of the config and installs the default slog
// logger on stderr. Non-empty RTTP_DEBUG and RTTP_LOG_LEVEL win over the
// configured categories and level. format is "json" or "text".
func Init(configCategories, configLevel, format string) {
	cats := os.Getenv("RTTP_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("RTTP_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}

	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, ParseLevel(level))))
}

// NewHandler builds the JSON or text slog handler used for server logs,
// printing LevelTrace records as "TRACE".
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Enabled reports whether category, or "all", was selected.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log writes a DEBUG record tagged with category when it is enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace writes a TRACE record tagged with category when it is enabled.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether Trace output for category would be shown.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw prints text verbatim, bypassing slog, so wire dumps can be replayed
// with tools like nc. It requires TraceIsEnabled(category).
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(rawOutput, text)
}

// ParseLevel maps a case-insensitive level name to a slog.Level. Unknown
// names yield INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories lists the selected categories in sorted order.
func Categories() []string {
	var result []string
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to maxLen bytes and marks the cut with "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for cat := range strings.SplitSeq(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
