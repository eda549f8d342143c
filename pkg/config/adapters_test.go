package config

import (
	"testing"

	"github.com/marmos91/dittohttp/pkg/metrics"
)

func TestCreateAdapters_HTTP(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("Expected 1 adapter, got %d", len(adapters))
	}
	if adapters[0].Protocol() != "HTTP" || adapters[0].Port() != DefaultHTTPPort {
		t.Errorf("Unexpected adapter %s:%d", adapters[0].Protocol(), adapters[0].Port())
	}
}

func TestCreateAdapters_NoneEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Enabled = false

	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Fatal("Expected error when no adapters are enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.HTTPMetrics == nil {
		t.Fatal("Expected no-op HTTP metrics, got nil")
	}
	if result.HTTPMetrics != metrics.NewNoopHTTPMetrics() {
		t.Errorf("Expected no-op HTTP metrics, got %T", result.HTTPMetrics)
	}
}
