// Package metrics defines the instrumentation surface of the HTTP adapter.
//
// HTTPMetrics is the interface the adapter and its connection workers record
// into: request counts and latency per method and status, decode failures by
// reason, bytes read and written, and connection admission outcomes. The
// Prometheus implementation lives in pkg/metrics/prometheus and registers its
// collectors on the registry below. Server exports that registry on /metrics.
//
// Metrics stay off until InitRegistry is called. Until then NewHTTPMetrics in
// the prometheus package returns the no-op implementation, and a nil
// collector passed to the adapter means the same thing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry. Later calls are no-ops.
// Call it before constructing collectors, normally from config.InitializeMetrics.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
