package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ideastream.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("expected %s=%q, got %q", field, want, got)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	yaml := `endpoint: https://api.example.com/ideas/generate
headers:
  Authorization: Bearer token123
model: gpt-4o
provider: openai
auto_navigate: false
connect_timeout: 15s

diagnostics:
  url: https://hooks.example.com/faults
  headers:
    X-Source: ideastream
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "endpoint", cfg.Endpoint, "https://api.example.com/ideas/generate")
	assertEqual(t, "headers.Authorization", cfg.Headers["Authorization"], "Bearer token123")
	assertEqual(t, "model", cfg.Model, "gpt-4o")
	assertEqual(t, "provider", cfg.Provider, "openai")
	if cfg.NavigateEnabled() {
		t.Error("expected auto_navigate=false to disable navigation")
	}
	if cfg.ConnectTimeout.Duration != 15*time.Second {
		t.Errorf("expected connect_timeout=15s, got %v", cfg.ConnectTimeout.Duration)
	}

	assertEqual(t, "diagnostics.url", cfg.Diagnostics.URL, "https://hooks.example.com/faults")
	assertEqual(t, "diagnostics.headers.X-Source", cfg.Diagnostics.Headers["X-Source"], "ideastream")
	if cfg.Diagnostics.Timeout.Duration != 10*time.Second {
		t.Errorf("expected diagnostics.timeout=10s, got %v", cfg.Diagnostics.Timeout.Duration)
	}
	if cfg.Diagnostics.Retries == nil || *cfg.Diagnostics.Retries != 3 {
		t.Errorf("expected diagnostics.retries=3, got %v", cfg.Diagnostics.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	cfg, err := Load(writeTemp(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Endpoint != "" || cfg.Model != "" {
		t.Errorf("expected zero config, got %+v", cfg)
	}
	if !cfg.NavigateEnabled() {
		t.Error("expected navigation enabled by default")
	}
	if cfg.Diagnostics.URL != "" {
		t.Errorf("expected diagnostics disabled, got %q", cfg.Diagnostics.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "endpoint: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "invalid YAML") {
		t.Errorf("expected invalid-YAML error, got: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeTemp(t, "connect_timeout: soon"))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("expected invalid-duration error, got: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("IDEASTREAM_TOKEN", "secret-token")
	t.Setenv("IDEASTREAM_ENDPOINT", "")

	yaml := `endpoint: ${IDEASTREAM_ENDPOINT:-https://fallback.example.com/generate}
headers:
  Authorization: Bearer ${IDEASTREAM_TOKEN}
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "endpoint", cfg.Endpoint, "https://fallback.example.com/generate")
	assertEqual(t, "headers.Authorization", cfg.Headers["Authorization"], "Bearer secret-token")
}
