// Package config loads the ideastream YAML configuration file.
package config

import (
	"fmt"
	"time"
)

// Config represents an ideastream.yaml configuration file.
// All values are optional and act as defaults for ideastream run flags.
// CLI flags always override config values.
type Config struct {
	// Endpoint is the generation endpoint URL.
	Endpoint string `yaml:"endpoint"`
	// Headers are sent on every generation request (auth tokens etc).
	Headers map[string]string `yaml:"headers,omitempty"`
	// Model and Provider are the default model selection.
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
	// AutoNavigate controls printing the result location on success.
	// Nil means enabled.
	AutoNavigate *bool `yaml:"auto_navigate,omitempty"`
	// ConnectTimeout bounds waiting for response headers; it never
	// bounds the stream itself.
	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`

	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`
}

// DiagnosticsConfig configures the optional fault-report webhook.
// An empty URL disables webhook reporting; faults then go to the log only.
type DiagnosticsConfig struct {
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// NavigateEnabled resolves the AutoNavigate default.
func (c *Config) NavigateEnabled() bool {
	return c.AutoNavigate == nil || *c.AutoNavigate
}
