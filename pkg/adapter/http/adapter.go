// Package http implements the HTTP/1.1-subset adapter: a TCP acceptor loop
// with admission control and one worker goroutine per connection, each
// serving exactly one request before closing.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/ratelimiter"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/marmos91/dittohttp/pkg/router"
)

// ErrAdapterStopped is returned when Listen or Serve is called after Stop.
var ErrAdapterStopped = errors.New("HTTP adapter stopped")

// forceCloseGrace bounds the wait for workers to unwind after their sockets
// were force-closed.
const forceCloseGrace = time.Second

// HTTPAdapter implements the adapter.Adapter interface for the HTTP subset.
//
// Architecture:
// HTTPAdapter owns the TCP listener and the connection registry. The accept
// loop admits sockets into the registry and starts an HTTPConnection worker
// for each one. Workers resolve requests against the injected route trie.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (Accept returns immediately, the accept loop exits)
//  3. Registry drained: every record marked dead and its context cancelled
//  4. Wait for workers to finish (up to ShutdownTimeout or the Stop context)
//  5. Force-close any remaining sockets after the timeout
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is guarded by sync.Once.
type HTTPAdapter struct {
	config HTTPConfig

	// listener is created by Listen and closed by initiateShutdown.
	listener   net.Listener
	listenerMu sync.Mutex

	// router is read-only once Serve starts.
	router *router.Trie

	metrics metrics.HTTPMetrics
	limiter *ratelimiter.RateLimiter

	registry *connRegistry

	// drained holds the records taken out of the registry at shutdown so
	// they can be force-closed after the timeout.
	drained   []*connRecord
	drainedMu sync.Mutex

	// activeConns counts running workers; Wait joins all of them.
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// shutdownCtx parents every connection context.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// serving is set once Serve starts; acceptDone closes when its loop exits.
	serving    atomic.Bool
	acceptDone chan struct{}
}

// New creates a new HTTPAdapter with the specified configuration.
//
// Zero values in config are replaced with defaults. Invalid configurations
// cause a panic (programmer error); pkg/config validates user input first.
//
// Parameters:
//   - config: adapter configuration (port, limits, timeouts)
//   - httpMetrics: optional metrics collector (nil for no metrics)
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	logger.Debug("HTTP connection limit: %d", config.MaxConnections)

	return &HTTPAdapter{
		config:         config,
		router:         router.New(),
		metrics:        httpMetrics,
		limiter:        ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		registry:       newConnRegistry(config.MaxConnections),
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
		acceptDone:     make(chan struct{}),
	}
}

// SetRouter injects the route trie. Must be called before Serve.
func (s *HTTPAdapter) SetRouter(trie *router.Trie) {
	if trie == nil {
		trie = router.New()
	}
	s.router = trie
	logger.Debug("HTTP router configured with %d route(s)", trie.Len())
}

// Listen binds the configured port.
//
// Splitting bind from Serve lets the caller of Start see bind failures
// synchronously instead of from a background goroutine.
func (s *HTTPAdapter) Listen() error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener != nil {
		return nil
	}

	select {
	case <-s.shutdown:
		return ErrAdapterStopped
	default:
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on port %d: %w", s.config.Port, err)
	}

	s.listener = listener
	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: max_connections=%d first_byte_timeout=%v read_timeout=%v write_timeout=%v decode_failure_policy=%s",
		s.config.MaxConnections, s.config.FirstByteTimeout, s.config.ReadTimeout,
		s.config.WriteTimeout, s.config.DecodeFailurePolicy)
	return nil
}

// Serve runs the accept loop and blocks until shutdown.
//
// Each accepted socket goes through admission:
//  1. Dead records are reaped from the registry
//  2. The rate limiter is consulted (when configured)
//  3. The registry admits the record if it holds fewer than MaxConnections
//
// A socket that fails admission is logged, counted and closed without a
// worker. When the loop exits, Serve waits for active connections up to
// ShutdownTimeout and force-closes the rest.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be created or workers had to be force-closed
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("HTTP adapter already serving")
	}

	// Stop the accept loop when ctx is cancelled.
	stopWatch := context.AfterFunc(ctx, func() {
		logger.Info("HTTP shutdown signal received: %v", ctx.Err())
		s.initiateShutdown()
	})
	defer stopWatch()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(s.shutdownCtx)
	}

	s.acceptLoop()
	close(s.acceptDone)

	// The listener may have failed on its own; make sure workers are signalled.
	s.initiateShutdown()

	return s.gracefulShutdown()
}

// acceptLoop accepts connections until the listener is closed.
func (s *HTTPAdapter) acceptLoop() {
	var tempDelay time.Duration

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				// Expected: the listener was closed by initiateShutdown.
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			// Resource exhaustion (EMFILE and friends): back off like net/http.
			tempDelay = nextAcceptDelay(tempDelay)
			logger.Warn("HTTP accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		s.admit(tcpConn)
	}
}

// nextAcceptDelay doubles the backoff between 5ms and 1s.
func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// admit applies admission control to one accepted socket and starts its worker.
func (s *HTTPAdapter) admit(tcpConn net.Conn) {
	if reaped := s.registry.reap(); reaped > 0 {
		logger.Debug("HTTP registry reaped %d finished connection(s)", reaped)
	}

	if !s.limiter.Allow() {
		s.reject(tcpConn, "rate_limited")
		return
	}

	connCtx, cancel := context.WithCancel(s.shutdownCtx)
	rec := newConnRecord(tcpConn, cancel)

	if err := s.registry.tryAdmit(rec); err != nil {
		cancel()
		reason := "max_connections"
		if errors.Is(err, errPoolClosed) {
			reason = "shutting_down"
		}
		s.reject(tcpConn, reason)
		return
	}

	s.activeConns.Add(1)
	currentConns := s.connCount.Add(1)

	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(currentConns)

	logger.Debug("HTTP connection %s accepted from %s (active: %d)",
		rec.id, rec.remoteAddr, currentConns)

	go s.runWorker(connCtx, rec)
}

// reject closes a socket that failed admission.
func (s *HTTPAdapter) reject(tcpConn net.Conn, reason string) {
	logger.Warn("HTTP connection from %s rejected: %s (registered: %d, limit: %d)",
		tcpConn.RemoteAddr(), reason, s.registry.count(), s.config.MaxConnections)
	s.metrics.RecordConnectionRejected(reason)
	_ = tcpConn.Close()
}

// runWorker serves one connection and releases its bookkeeping on every path.
func (s *HTTPAdapter) runWorker(ctx context.Context, rec *connRecord) {
	defer func() {
		rec.markDead()
		close(rec.done)

		s.activeConns.Done()
		currentConns := s.connCount.Add(-1)

		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(currentConns)

		logger.Debug("HTTP connection %s from %s closed (active: %d)",
			rec.id, rec.remoteAddr, currentConns)
	}()

	NewHTTPConnection(s, rec).Serve(ctx)
}

// initiateShutdown closes the listener and signals every connection.
//
// Safe to call multiple times and from multiple goroutines.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}
		s.listenerMu.Unlock()

		records := s.registry.drain()
		for _, rec := range records {
			rec.markDead()
		}

		s.drainedMu.Lock()
		s.drained = records
		s.drainedMu.Unlock()

		s.cancelRequests()
		logger.Debug("HTTP cancellation sent to %d connection(s)", len(records))
	})
}

// gracefulShutdown waits for workers up to ShutdownTimeout.
func (s *HTTPAdapter) gracefulShutdown() error {
	logger.Info("HTTP graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		s.connCount.Load(), s.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	return s.waitForWorkers(ctx)
}

// waitForWorkers joins every worker or force-closes the remaining sockets
// when ctx expires.
func (s *HTTPAdapter) waitForWorkers(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("HTTP graceful shutdown complete: all connections closed")
		return nil

	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown timeout exceeded: %d connection(s) still active - forcing closure",
			remaining)

		s.forceCloseConnections()

		select {
		case <-done:
		case <-time.After(forceCloseGrace):
			logger.Warn("HTTP workers still running after force close: %d", s.connCount.Load())
		}

		return fmt.Errorf("HTTP shutdown timeout: %d connections force-closed: %w", remaining, ctx.Err())
	}
}

// forceCloseConnections closes the socket of every worker that has not exited.
func (s *HTTPAdapter) forceCloseConnections() {
	s.drainedMu.Lock()
	records := s.drained
	s.drainedMu.Unlock()

	closedCount := 0
	for _, rec := range records {
		if rec.finished() {
			continue
		}
		if err := rec.conn.Close(); err != nil {
			logger.Debug("Error force-closing connection %s to %s: %v", rec.id, rec.remoteAddr, err)
			continue
		}
		closedCount++
		s.metrics.RecordConnectionForceClosed()
		logger.Debug("Force-closed connection %s to %s", rec.id, rec.remoteAddr)
	}

	if closedCount > 0 {
		logger.Info("Force-closed %d HTTP connection(s)", closedCount)
	}
}

// Stop initiates shutdown and waits until the accept loop and every worker
// have exited.
//
// A ctx without a deadline is bounded by ShutdownTimeout. When the deadline
// passes first, remaining sockets are force-closed and an error is returned.
//
// Thread safety:
// Safe to call concurrently and more than once.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	// Accept returns as soon as the listener is closed.
	if s.serving.Load() {
		select {
		case <-s.acceptDone:
		case <-ctx.Done():
			return fmt.Errorf("HTTP accept loop did not exit: %w", ctx.Err())
		}
	}

	return s.waitForWorkers(ctx)
}

// logMetrics periodically logs the connection count until ctx is cancelled.
func (s *HTTPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStats()
		}
	}
}

func (s *HTTPAdapter) logStats() {
	if s.limiter.Unlimited() {
		logger.Info("HTTP metrics: active_connections=%d registered=%d",
			s.connCount.Load(), s.registry.count())
		return
	}
	logger.Info("HTTP metrics: active_connections=%d registered=%d admission_tokens=%.1f",
		s.connCount.Load(), s.registry.count(), s.limiter.Tokens())
}

// GetActiveConnections returns the number of running workers.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr returns the bound address, or nil before Listen.
func (s *HTTPAdapter) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or the configured port before Listen.
func (s *HTTPAdapter) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}

// Protocol returns "HTTP".
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}
