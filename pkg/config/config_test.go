package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "info"

store:
  type: "memory"

adapters:
  http:
    enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level normalized to 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.HTTP.Port != DefaultHTTPPort {
		t.Errorf("Expected default HTTP port %d, got %d", DefaultHTTPPort, cfg.Adapters.HTTP.Port)
	}
	if cfg.Adapters.HTTP.MaxConnections != 10 {
		t.Errorf("Expected default max_connections 10, got %d", cfg.Adapters.HTTP.MaxConnections)
	}
	if cfg.Adapters.HTTP.FirstByteTimeout != 100*time.Millisecond {
		t.Errorf("Expected default first_byte_timeout 100ms, got %v", cfg.Adapters.HTTP.FirstByteTimeout)
	}
	if cfg.Adapters.HTTP.DecodeFailurePolicy != httpadapter.DecodeFailureRespond {
		t.Errorf("Expected default decode_failure_policy respond, got %q", cfg.Adapters.HTTP.DecodeFailurePolicy)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A path inside a temp dir keeps the user's real config out of the test.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled by default")
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	configPath := writeConfig(t, `
server:
  shutdown_timeout: 5s
  metrics:
    enabled: true
    port: 9191

adapters:
  http:
    enabled: true
    port: 8181
    max_connections: 64
    first_byte_timeout: 250ms
    read_buffer_size: 4096
    max_request_size: 65536
    decode_failure_policy: DROP
    rate_limit:
      requests_per_second: 50
      burst: 100

store:
  type: badger
  badger:
    db_path: /var/lib/dittohttp
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	h := cfg.Adapters.HTTP
	if h.Port != 8181 || h.MaxConnections != 64 {
		t.Errorf("Unexpected port/max_connections: %d/%d", h.Port, h.MaxConnections)
	}
	if h.FirstByteTimeout != 250*time.Millisecond {
		t.Errorf("Expected first_byte_timeout 250ms, got %v", h.FirstByteTimeout)
	}
	if h.ReadBufferSize != 4096 || h.MaxRequestSize != 65536 {
		t.Errorf("Unexpected buffer sizes: %d/%d", h.ReadBufferSize, h.MaxRequestSize)
	}
	if h.DecodeFailurePolicy != httpadapter.DecodeFailureDrop {
		t.Errorf("Expected decode_failure_policy normalized to drop, got %q", h.DecodeFailurePolicy)
	}
	if h.RateLimit.RequestsPerSecond != 50 || h.RateLimit.Burst != 100 {
		t.Errorf("Unexpected rate limit: %+v", h.RateLimit)
	}
	if !cfg.Server.Metrics.Enabled || cfg.Server.Metrics.Port != 9191 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Server.Metrics)
	}
	if cfg.Store.Type != "badger" || cfg.Store.Badger["db_path"] != "/var/lib/dittohttp" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: INFO
adapters:
  http:
    port: 8080
`)

	t.Setenv("DITTOHTTP_LOGGING_LEVEL", "DEBUG")
	t.Setenv("DITTOHTTP_ADAPTERS_HTTP_PORT", "9000")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env override DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 9000 {
		t.Errorf("Expected env override port 9000, got %d", cfg.Adapters.HTTP.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "logging:\n  level: [unclosed\n")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, `
adapters:
  http:
    port: 8080
    decode_failure_policy: ignore
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown decode_failure_policy")
	}
}

func TestLoad_DisabledAdapterFails(t *testing.T) {
	configPath := writeConfig(t, `
adapters:
  http:
    enabled: false
    port: 8080
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error when every adapter is disabled")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := GetConfigDir(); got != filepath.Join(dir, "dittohttp") {
		t.Errorf("Expected XDG config dir, got %q", got)
	}
	if got := GetDefaultConfigPath(); got != filepath.Join(dir, "dittohttp", "config.yaml") {
		t.Errorf("Unexpected default config path %q", got)
	}
	if ConfigExists() {
		t.Error("Expected no config in a fresh XDG dir")
	}
}
