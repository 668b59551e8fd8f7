// Package config provides unified configuration for the rttp server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RTTP_ prefix)
//  4. Validation
package config

import "time"

// Config holds all configuration for the rttp server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	CORS          CORSConfig          `yaml:"cors"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds listener and connection engine settings.
//
// Timeouts of zero disable the corresponding deadline.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`                // default: ":8080"
	MaxRequestSize    int           `yaml:"max_request_size"`    // default: 8 MiB
	InitialBufferSize int           `yaml:"initial_buffer_size"` // default: 4096
	ReadTimeout       time.Duration `yaml:"read_timeout"`        // default: 0
	WriteTimeout      time.Duration `yaml:"write_timeout"`       // default: 0
	IdleTimeout       time.Duration `yaml:"idle_timeout"`        // default: 0
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s, 0 waits indefinitely
}

// CORSConfig holds cross-origin resource sharing settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`         // default: false
	AllowedOrigins []string `yaml:"allowed_origins"` // default: ["*"]
	AllowedMethods []string `yaml:"allowed_methods"` // default: GET, POST, PUT, DELETE
	AllowedHeaders []string `yaml:"allowed_headers"` // default: Content-Type, Authorization
	MaxAge         int      `yaml:"max_age"`         // seconds, default: 3600
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`      // default: false
	Exporter    string `yaml:"exporter"`     // "stdout" or "none", default: "stdout"
	ServiceName string `yaml:"service_name"` // default: "rttp"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			MaxRequestSize:    8 << 20,
			InitialBufferSize: 4096,
			ShutdownTimeout:   30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         3600,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Exporter:    "stdout",
				ServiceName: "rttp",
			},
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
