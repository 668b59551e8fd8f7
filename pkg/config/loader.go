package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RTTP_CONFIG env, ./config.yaml, /etc/rttp/config.yaml)
//  3. Environment variable overrides
//  4. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. RTTP_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/rttp/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("RTTP_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/rttp/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps RTTP_* environment variables to config fields.
// Malformed numeric or duration values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RTTP_PORT: %w", err)
		}
		host, _, err := net.SplitHostPort(cfg.Server.Addr)
		if err != nil {
			host = ""
		}
		cfg.Server.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if v := os.Getenv("RTTP_MAX_REQUEST_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RTTP_MAX_REQUEST_SIZE: %w", err)
		}
		cfg.Server.MaxRequestSize = size
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"RTTP_READ_TIMEOUT", &cfg.Server.ReadTimeout},
		{"RTTP_WRITE_TIMEOUT", &cfg.Server.WriteTimeout},
		{"RTTP_IDLE_TIMEOUT", &cfg.Server.IdleTimeout},
		{"RTTP_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("RTTP_CORS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RTTP_CORS_ENABLED: %w", err)
		}
		cfg.CORS.Enabled = enabled
	}
	if v := os.Getenv("RTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("RTTP_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RTTP_METRICS_ENABLED: %w", err)
		}
		cfg.Observability.Metrics.Enabled = enabled
	}
	if v := os.Getenv("RTTP_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RTTP_TRACING_ENABLED: %w", err)
		}
		cfg.Observability.Tracing.Enabled = enabled
	}
	if v := os.Getenv("RTTP_TRACING_EXPORTER"); v != "" {
		cfg.Observability.Tracing.Exporter = v
	}

	if v := os.Getenv("RTTP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// splitList splits a comma separated list and drops empty entries.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
