package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8<<20, cfg.Server.MaxRequestSize)
	assert.Equal(t, 4096, cfg.Server.InitialBufferSize)
	assert.Zero(t, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.Zero(t, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3600, cfg.CORS.MaxAge)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Tracing.Exporter)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  addr: 127.0.0.1:9090
  max_request_size: 1048576
  initial_buffer_size: 1024
  read_timeout: 10s
  write_timeout: 15s
  idle_timeout: 2m
  shutdown_timeout: 5s
cors:
  enabled: true
  allowed_origins: [https://app.example]
  allowed_methods: [GET, PATCH]
  allowed_headers: [X-Custom]
  max_age: 60
observability:
  metrics:
    enabled: false
    path: /internal/metrics
  tracing:
    enabled: true
    exporter: none
    service_name: edge
log:
  level: debug
  format: json
  debug: server,router
`
	cfg, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 1<<20, cfg.Server.MaxRequestSize)
	assert.Equal(t, 1024, cfg.Server.InitialBufferSize)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PATCH"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"X-Custom"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 60, cfg.CORS.MaxAge)

	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/internal/metrics", cfg.Observability.Metrics.Path)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "none", cfg.Observability.Tracing.Exporter)
	assert.Equal(t, "edge", cfg.Observability.Tracing.ServiceName)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "server,router", cfg.Log.Debug)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeTemp(t, "config-*.yaml", "server:\n  adress: :9000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adress")
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config-*.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
server:
  addr: 0.0.0.0:9090
  read_timeout: 1s
cors:
  enabled: false
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("RTTP_PORT", "7070")
	t.Setenv("RTTP_READ_TIMEOUT", "3s")
	t.Setenv("RTTP_IDLE_TIMEOUT", "1m")
	t.Setenv("RTTP_MAX_REQUEST_SIZE", "65536")
	t.Setenv("RTTP_CORS_ENABLED", "true")
	t.Setenv("RTTP_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RTTP_METRICS_ENABLED", "false")
	t.Setenv("RTTP_TRACING_ENABLED", "true")
	t.Setenv("RTTP_TRACING_EXPORTER", "none")
	t.Setenv("RTTP_LOG_FORMAT", "json")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7070", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.Server.IdleTimeout)
	assert.Equal(t, 65536, cfg.Server.MaxRequestSize)
	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "none", cfg.Observability.Tracing.Exporter)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvAddrBeatsFile(t *testing.T) {
	tmpFile := writeTemp(t, "config-*.yaml", "server:\n  addr: :9090\n")
	t.Setenv("RTTP_ADDR", "127.0.0.1:6060")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6060", cfg.Server.Addr)
}

func TestEnvOverrideMalformed(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"RTTP_PORT", "eighty"},
		{"RTTP_MAX_REQUEST_SIZE", "big"},
		{"RTTP_READ_TIMEOUT", "soon"},
		{"RTTP_SHUTDOWN_TIMEOUT", "10"},
		{"RTTP_CORS_ENABLED", "maybe"},
		{"RTTP_METRICS_ENABLED", "yes please"},
		{"RTTP_TRACING_ENABLED", "sure"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("RTTP_CONFIG", "")
			t.Setenv(tt.env, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestFileDiscovery(t *testing.T) {
	t.Chdir(t.TempDir())

	// Explicit path.
	explicit := writeTemp(t, "config-*.yaml", "server:\n  addr: :1111\n")
	cfg, err := Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, ":1111", cfg.Server.Addr)

	// RTTP_CONFIG env var.
	envFile := writeTemp(t, "envconfig-*.yaml", "server:\n  addr: :2222\n")
	t.Setenv("RTTP_CONFIG", envFile)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.Server.Addr)

	// ./config.yaml in the working directory.
	t.Setenv("RTTP_CONFIG", "")
	require.NoError(t, os.WriteFile("config.yaml", []byte("server:\n  addr: :3333\n"), 0o600))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3333", cfg.Server.Addr)

	// Nothing found: defaults.
	require.NoError(t, os.Remove("config.yaml"))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "bad addr",
			modify:  func(c *Config) { c.Server.Addr = "localhost" },
			wantErr: "server.addr must be host:port",
		},
		{
			name:    "zero max request size",
			modify:  func(c *Config) { c.Server.MaxRequestSize = 0 },
			wantErr: "server.max_request_size must be > 0",
		},
		{
			name:    "zero initial buffer",
			modify:  func(c *Config) { c.Server.InitialBufferSize = 0 },
			wantErr: "server.initial_buffer_size must be > 0",
		},
		{
			name: "initial buffer above cap",
			modify: func(c *Config) {
				c.Server.MaxRequestSize = 1024
				c.Server.InitialBufferSize = 4096
			},
			wantErr: "must not exceed server.max_request_size",
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Server.IdleTimeout = -time.Second },
			wantErr: "server.idle_timeout must not be negative",
		},
		{
			name: "cors without origins",
			modify: func(c *Config) {
				c.CORS.Enabled = true
				c.CORS.AllowedOrigins = nil
			},
			wantErr: "cors.allowed_origins must not be empty",
		},
		{
			name:    "negative max age",
			modify:  func(c *Config) { c.CORS.MaxAge = -1 },
			wantErr: "cors.max_age must not be negative",
		},
		{
			name:    "relative metrics path",
			modify:  func(c *Config) { c.Observability.Metrics.Path = "metrics" },
			wantErr: "observability.metrics.path must start with",
		},
		{
			name:    "unknown exporter",
			modify:  func(c *Config) { c.Observability.Tracing.Exporter = "jaeger" },
			wantErr: "observability.tracing.exporter must be",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format must be",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "LOUD" },
			wantErr: "log.level must be one of",
		},
		{
			name:   "metrics path ignored when disabled",
			modify: func(c *Config) { c.Observability.Metrics = MetricsConfig{} },
		},
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationJoinsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Addr = "nope"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "log.format")
}

// writeTemp creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	return f.Name()
}
