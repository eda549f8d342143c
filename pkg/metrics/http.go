package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// The adapter never holds a nil HTTPMetrics: when metrics are disabled it
// uses the no-op implementation returned by NewNoopHTTPMetrics.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	adapter := http.New(config, prometheus.NewHTTPMetrics())
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a completed exchange.
	//
	// Parameters:
	//   - method: request method ("GET", "POST", ..., "UNSUPPORTED")
	//   - status: response status code written to the peer
	//   - duration: time from dispatch to response written
	RecordRequest(method string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(method string)

	// RecordDecodeFailure counts requests rejected before dispatch.
	//
	// Parameters:
	//   - reason: "malformed_request_line", "malformed_header", "malformed_body" or "too_large"
	RecordDecodeFailure(reason string)

	// RecordBytesTransferred records bytes read from or written to peers.
	//
	// Parameters:
	//   - direction: "read" or "write"
	RecordBytesTransferred(direction string, bytes int64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted counts admitted connections.
	RecordConnectionAccepted()

	// RecordConnectionRejected counts sockets dropped by admission control.
	//
	// Parameters:
	//   - reason: "max_connections" or "rate_limited"
	RecordConnectionRejected(reason string)

	// RecordConnectionClosed counts finished connections.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by a shutdown timeout.
	RecordConnectionForceClosed()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that records nothing.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(method string, status int, duration time.Duration) {}
func (noopHTTPMetrics) RecordRequestStart(method string)                                {}
func (noopHTTPMetrics) RecordRequestEnd(method string)                                  {}
func (noopHTTPMetrics) RecordDecodeFailure(reason string)                               {}
func (noopHTTPMetrics) RecordBytesTransferred(direction string, bytes int64)            {}
func (noopHTTPMetrics) SetActiveConnections(count int32)                                {}
func (noopHTTPMetrics) RecordConnectionAccepted()                                       {}
func (noopHTTPMetrics) RecordConnectionRejected(reason string)                          {}
func (noopHTTPMetrics) RecordConnectionClosed()                                         {}
func (noopHTTPMetrics) RecordConnectionForceClosed()                                    {}
