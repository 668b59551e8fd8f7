package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCategories swaps the enabled categories for the duration of a test.
func withCategories(t *testing.T, s string) {
	t.Helper()
	orig := categories
	t.Cleanup(func() { categories = orig })
	categories = parseCategories(s)
}

// withDefaultLogger installs a logger writing to a buffer.
func withDefaultLogger(t *testing.T, format string, level slog.Level) *bytes.Buffer {
	t.Helper()
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(NewHandler(&buf, format, level)))
	return &buf
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "server", map[string]bool{"server": true}},
		{"multiple", "server,router", map[string]bool{"server": true, "router": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " server , protocol ", map[string]bool{"server": true, "protocol": true}},
		{"uppercase normalized", "SERVER,Pipeline", map[string]bool{"server": true, "pipeline": true}},
		{"empty segments", "server,,router", map[string]bool{"server": true, "router": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCategories(tt.input))
		})
	}
}

func TestEnabled(t *testing.T) {
	withCategories(t, "server,router")

	assert.True(t, Enabled("server"))
	assert.True(t, Enabled("router"))
	assert.False(t, Enabled("protocol"))
	assert.False(t, Enabled("all"))
	assert.Equal(t, []string{"router", "server"}, Categories())
}

func TestEnabled_All(t *testing.T) {
	withCategories(t, "all")

	assert.True(t, Enabled("server"))
	assert.True(t, Enabled("config"))
	assert.True(t, Enabled("anything"))
}

func TestEnabled_Empty(t *testing.T) {
	withCategories(t, "")

	assert.False(t, Enabled("server"))
	assert.Empty(t, Categories())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "this is a ...", Truncate("this is a long string", 10))
}

func TestLog_DisabledCategory(t *testing.T) {
	withCategories(t, "")
	buf := withDefaultLogger(t, "text", LevelTrace)

	Log("server", "test message", "key", "value")
	Trace("server", "trace message", "key", "value")

	assert.Empty(t, buf.String())
}

func TestLog_EnabledCategory(t *testing.T) {
	withCategories(t, "router")
	buf := withDefaultLogger(t, "text", slog.LevelDebug)

	Log("router", "route matched", "path", "/x")
	Trace("router", "too detailed")

	assert.Contains(t, buf.String(), "debug=router")
	assert.Contains(t, buf.String(), "path=/x")
	assert.NotContains(t, buf.String(), "too detailed")
	assert.False(t, TraceIsEnabled("router"))
}

func TestTrace_LevelLabel(t *testing.T) {
	withCategories(t, "server")
	buf := withDefaultLogger(t, "json", LevelTrace)

	Trace("server", "bytes read", "n", 12)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "TRACE", record["level"])
	assert.Equal(t, "server", record["debug"])
	assert.Equal(t, "bytes read", record["msg"])
	assert.True(t, TraceIsEnabled("server"))
}

func TestRaw(t *testing.T) {
	withCategories(t, "protocol")
	withDefaultLogger(t, "text", LevelTrace)

	var out bytes.Buffer
	orig := rawOutput
	rawOutput = &out
	t.Cleanup(func() { rawOutput = orig })

	Raw("protocol", "GET / HTTP/1.1")
	Raw("server", "not enabled")

	assert.Equal(t, "GET / HTTP/1.1\n", out.String())
}

func TestLog_AllCoversEverySubsystem(t *testing.T) {
	withCategories(t, " ALL ,router")
	buf := withDefaultLogger(t, "text", slog.LevelDebug)

	for _, cat := range []string{"server", "protocol", "router", "pipeline", "config"} {
		Log(cat, "event")
		assert.Contains(t, buf.String(), "debug="+cat)
	}
	assert.Equal(t, []string{"all", "router"}, Categories())
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	orig := slog.Default()
	origCats := categories
	t.Cleanup(func() {
		slog.SetDefault(orig)
		categories = origCats
	})
	t.Setenv("RTTP_DEBUG", "pipeline")
	t.Setenv("RTTP_LOG_LEVEL", "debug")

	Init("server", "error", "json")

	assert.True(t, Enabled("pipeline"))
	assert.False(t, Enabled("server"))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestInit_ConfigFallback(t *testing.T) {
	orig := slog.Default()
	origCats := categories
	t.Cleanup(func() {
		slog.SetDefault(orig)
		categories = origCats
	})
	t.Setenv("RTTP_DEBUG", "")
	t.Setenv("RTTP_LOG_LEVEL", "")

	Init("server", "warn", "text")

	assert.True(t, Enabled("server"))
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelWarn))
}
