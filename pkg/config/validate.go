package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.addr must be host:port.
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr must be host:port, got %q", c.Server.Addr))
	}

	if c.Server.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_request_size must be > 0, got %d", c.Server.MaxRequestSize))
	}
	if c.Server.InitialBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("server.initial_buffer_size must be > 0, got %d", c.Server.InitialBufferSize))
	} else if c.Server.InitialBufferSize > c.Server.MaxRequestSize {
		errs = append(errs, fmt.Errorf("server.initial_buffer_size must not exceed server.max_request_size"))
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.idle_timeout", c.Server.IdleTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", t.name, t.d))
		}
	}

	if c.CORS.Enabled && len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, fmt.Errorf("cors.allowed_origins must not be empty when cors is enabled"))
	}
	if c.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("cors.max_age must not be negative, got %d", c.CORS.MaxAge))
	}

	// observability.metrics.path must be an absolute path.
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	// observability.tracing.exporter must be a known value.
	switch c.Observability.Tracing.Exporter {
	case "stdout", "none":
		// valid
	default:
		errs = append(errs, fmt.Errorf("observability.tracing.exporter must be \"stdout\" or \"none\", got %q", c.Observability.Tracing.Exporter))
	}

	// log.format must be a known value.
	switch c.Log.Format {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	// log.level must be a known value.
	switch strings.ToUpper(c.Log.Level) {
	case "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
