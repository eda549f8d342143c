package http

import (
	"fmt"
	"strings"
	"time"
)

// DecodeFailurePolicy selects what a connection does with a request that
// cannot be decoded.
type DecodeFailurePolicy string

const (
	// DecodeFailureRespond writes 400 Bad Request (413 when oversize) before closing.
	DecodeFailureRespond DecodeFailurePolicy = "respond"

	// DecodeFailureDrop closes the connection without writing anything.
	DecodeFailureDrop DecodeFailurePolicy = "drop"
)

// RateLimitConfig throttles connection admission.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained admission rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"min=0"`

	// Burst is the bucket capacity. 0 defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst" yaml:"burst" validate:"min=0"`
}

// HTTPConfig holds configuration parameters for the HTTP adapter.
//
// Default values (applied by New if zero; Port is defaulted by pkg/config):
//   - MaxConnections: 10
//   - FirstByteTimeout: 100ms
//   - ReadTimeout: 5s
//   - WriteTimeout: 5s
//   - ShutdownTimeout: 10s
//   - ReadBufferSize: 2048
//   - MaxRequestSize: 1MiB
//   - DecodeFailurePolicy: respond
//   - MetricsLogInterval: 5m
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. 0 binds an ephemeral port; the
	// config layer defaults it to 8080.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// MaxConnections is the admission ceiling. A socket accepted while the
	// registry holds MaxConnections live records is closed without a worker.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// FirstByteTimeout bounds the wait for a new connection to become readable.
	// A peer that sends nothing in time is abandoned without a response.
	FirstByteTimeout time.Duration `mapstructure:"first_byte_timeout" yaml:"first_byte_timeout" validate:"min=0"`

	// ReadTimeout bounds each read after the first one.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum wait for active connections during Stop.
	// After it expires remaining connections are force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// ReadBufferSize is the size of each socket read. A read shorter than the
	// buffer ends the request.
	ReadBufferSize int `mapstructure:"read_buffer_size" yaml:"read_buffer_size" validate:"min=0"`

	// MaxRequestSize caps the accumulated request bytes.
	MaxRequestSize int `mapstructure:"max_request_size" yaml:"max_request_size" validate:"min=0"`

	// DecodeFailurePolicy is "respond" or "drop".
	DecodeFailurePolicy DecodeFailurePolicy `mapstructure:"decode_failure_policy" yaml:"decode_failure_policy" validate:"omitempty,oneof=respond drop"`

	// MetricsLogInterval is the interval for logging connection counts.
	// Negative disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval"`

	// RateLimit throttles admission before the connection ceiling is checked.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled is defaulted in pkg/config so an explicit false survives.

	if c.MaxConnections == 0 {
		c.MaxConnections = 10
	}
	if c.FirstByteTimeout == 0 {
		c.FirstByteTimeout = 100 * time.Millisecond
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 2048
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = 1 << 20
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
	c.DecodeFailurePolicy = DecodeFailurePolicy(strings.ToLower(string(c.DecodeFailurePolicy)))
	if c.DecodeFailurePolicy == "" {
		c.DecodeFailurePolicy = DecodeFailureRespond
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be > 0", c.MaxConnections)
	}
	if c.FirstByteTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("invalid timeouts: first_byte=%v read=%v write=%v must be >= 0",
			c.FirstByteTimeout, c.ReadTimeout, c.WriteTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("invalid ReadBufferSize %d: must be > 0", c.ReadBufferSize)
	}
	if c.MaxRequestSize < c.ReadBufferSize {
		return fmt.Errorf("invalid MaxRequestSize %d: must be >= ReadBufferSize (%d)",
			c.MaxRequestSize, c.ReadBufferSize)
	}
	switch c.DecodeFailurePolicy {
	case DecodeFailureRespond, DecodeFailureDrop:
	default:
		return fmt.Errorf("invalid DecodeFailurePolicy %q: must be respond or drop", c.DecodeFailurePolicy)
	}
	return nil
}

// Normalize applies defaults and validates. pkg/config calls it at load time
// so a bad value is reported as a configuration error instead of a panic in New.
func (c *HTTPConfig) Normalize() error {
	c.applyDefaults()
	return c.validate()
}
