// Package server is the embedding facade: it owns the route trie, registers
// handlers and drives the lifecycle of the protocol adapters that serve them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/message"
	"github.com/marmos91/dittohttp/pkg/router"
)

var (
	// ErrServerRunning is returned when routes are registered after Start.
	ErrServerRunning = errors.New("server is running: routes are read-only")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("server already started")

	// ErrServerClosed is returned by Start and registration once the server has stopped.
	ErrServerClosed = errors.New("server closed")

	// ErrNoAdapters is returned by Start when no adapter was added.
	ErrNoAdapters = errors.New("no adapters registered")
)

// stopTimeout bounds adapter shutdown when Stop is given a context without deadline.
const stopTimeout = 30 * time.Second

// DittoServer registers routes and manages the lifecycle of protocol adapters
// sharing one route trie.
//
// Lifecycle:
//  1. Creation: New()
//  2. Registration: GET/POST/PUT/DELETE/Handle and AddAdapter
//  3. Startup: Start() binds every adapter and returns a Handle
//  4. Shutdown: Stop() or cancellation of the Start context
//
// State moves Stopped → Starting → Running → Stopping → Stopped.
//
// A DittoServer is started at most once. Registration is rejected with
// ErrServerRunning once Start has been called, since the trie is read
// without locks while serving.
//
// Example usage:
//
//	srv := server.New()
//	_ = srv.GET("/health", func(req *message.Request) *message.Response {
//	    return message.Text(200, "ok")
//	})
//	_ = srv.AddAdapter(http.New(cfg, nil))
//
//	h, err := srv.Start(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
type DittoServer struct {
	router   *router.Trie
	adapters []adapter.Adapter

	// mu serializes state transitions, registration and AddAdapter.
	mu     sync.Mutex
	state  atomic.Int32
	closed bool

	handle   *Handle
	stopWait func() bool
}

// New creates a stopped server with an empty route trie.
func New() *DittoServer {
	return &DittoServer{
		router:   router.New(),
		adapters: make([]adapter.Adapter, 0, 1),
	}
}

// State returns the current lifecycle state.
func (s *DittoServer) State() State {
	return State(s.state.Load())
}

func (s *DittoServer) setState(st State) {
	s.state.Store(int32(st))
	logger.Debug("DittoServer state: %s", st)
}

// AddAdapter registers a protocol adapter.
//
// Returns an error for a duplicate protocol, a port conflict, or when the
// server has already been started.
//
// Panics if a is nil (programmer error).
func (s *DittoServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRegistrationLocked(); err != nil {
		return err
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		// Port 0 binds an ephemeral port and cannot conflict.
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Adapters returns a snapshot of the registered adapters.
func (s *DittoServer) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

func (s *DittoServer) checkRegistrationLocked() error {
	if s.closed {
		return ErrServerClosed
	}
	if s.State() != StateStopped {
		return ErrServerRunning
	}
	return nil
}

// Handle registers handler for (method, path).
//
// Errors: ErrServerRunning after Start, router.ErrDuplicateRoute,
// router.ErrUnsupportedMethod and router.ErrNilHandler.
func (s *DittoServer) Handle(method message.Method, path string, handler router.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRegistrationLocked(); err != nil {
		return fmt.Errorf("register %s %s: %w", method, path, err)
	}
	if err := s.router.Register(path, method, handler); err != nil {
		return err
	}

	logger.Debug("Registered route %s %s", method, path)
	return nil
}

// MustHandle is Handle that panics on error. For static route tables.
func (s *DittoServer) MustHandle(method message.Method, path string, handler router.Handler) {
	if err := s.Handle(method, path, handler); err != nil {
		panic(err)
	}
}

// GET registers a GET handler.
func (s *DittoServer) GET(path string, handler router.Handler) error {
	return s.Handle(message.MethodGet, path, handler)
}

// POST registers a POST handler.
func (s *DittoServer) POST(path string, handler router.Handler) error {
	return s.Handle(message.MethodPost, path, handler)
}

// PUT registers a PUT handler.
func (s *DittoServer) PUT(path string, handler router.Handler) error {
	return s.Handle(message.MethodPut, path, handler)
}

// DELETE registers a DELETE handler.
func (s *DittoServer) DELETE(path string, handler router.Handler) error {
	return s.Handle(message.MethodDelete, path, handler)
}

// Routes lists every registered route, sorted by path then method.
func (s *DittoServer) Routes() []router.Route {
	return s.router.Routes()
}

// Start binds every adapter and begins serving in the background.
//
// Start returns as soon as all listeners are bound. A bind failure stops the
// adapters already bound and is returned; nothing is served in that case.
// Cancelling ctx stops the server as if Stop had been called.
//
// Returns ErrAlreadyStarted (or ErrServerClosed after a Stop) on a second call.
func (s *DittoServer) Start(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrServerClosed
	}
	if s.State() != StateStopped {
		return nil, ErrAlreadyStarted
	}
	if len(s.adapters) == 0 {
		return nil, fmt.Errorf("%w; call AddAdapter() before Start()", ErrNoAdapters)
	}

	s.setState(StateStarting)
	startTime := time.Now()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)

	for i, a := range adapters {
		a.SetRouter(s.router)

		if err := a.Listen(); err != nil {
			logger.Error("%s adapter failed to bind: %v", a.Protocol(), err)
			s.stopAllAdapters(context.Background(), adapters[:i+1])
			s.closed = true
			s.setState(StateStopped)
			return nil, fmt.Errorf("%s adapter: %w", a.Protocol(), err)
		}
	}

	h := newHandle(adapters)
	s.handle = h

	s.setState(StateRunning)
	go s.serve(adapters, h)

	s.stopWait = context.AfterFunc(ctx, func() {
		logger.Info("Shutdown signal received (reason: %v)", context.Cause(ctx))
		if err := s.Stop(context.Background()); err != nil {
			logger.Warn("Shutdown after cancellation: %v", err)
		}
	})

	logger.Info("DittoServer started %d adapter(s) with %d route(s) in %v",
		len(adapters), s.router.Len(), time.Since(startTime))

	return h, nil
}

// serve runs every adapter until all have returned.
//
// An adapter exiting while the server is Running is treated as fatal and
// stops the other adapters, as in a crash-over-limp policy.
func (s *DittoServer) serve(adapters []adapter.Adapter, h *Handle) {
	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(context.Background())
			if err != nil {
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("%s adapter: %w", protocol, err))
				errsMu.Unlock()
			}

			if s.State() == StateRunning {
				logger.Error("%s adapter exited unexpectedly: %v - stopping all adapters", protocol, err)
				ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				s.stopAllAdapters(ctx, adapters)
				cancel()
				return
			}
			logger.Debug("%s adapter stopped", protocol)
		}(adp)
	}

	wg.Wait()

	s.mu.Lock()
	if s.State() == StateRunning {
		s.closed = true
		s.setState(StateStopped)
	}
	s.mu.Unlock()

	h.finish(errors.Join(errs...))
	logger.Info("DittoServer stopped")
}

// stopAllAdapters stops adapters in reverse registration order.
func (s *DittoServer) stopAllAdapters(ctx context.Context, adapters []adapter.Adapter) {
	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
			continue
		}
		logger.Debug("%s adapter stopped", adp.Protocol())
	}
}

// Stop shuts every adapter down and waits for the serving goroutines.
//
// After Stop returns, no accept loop or connection worker is running and
// the Handle reports Running() == false. Calling Stop on a server that is
// not running returns nil.
//
// A ctx without deadline is bounded by a 30s timeout.
func (s *DittoServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.State() != StateRunning {
		h := s.handle
		s.mu.Unlock()

		// A concurrent Stop may be in progress; wait for it to finish.
		if h != nil {
			return waitDone(ctx, h)
		}
		return nil
	}
	s.setState(StateStopping)
	h := s.handle
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	stopWait := s.stopWait
	s.mu.Unlock()

	if stopWait != nil {
		stopWait()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stopTimeout)
		defer cancel()
	}

	s.stopAllAdapters(ctx, adapters)
	err := waitDone(ctx, h)

	s.mu.Lock()
	s.closed = true
	s.setState(StateStopped)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return h.Err()
}

func waitDone(ctx context.Context, h *Handle) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for adapters: %w", ctx.Err())
	}
}

// Handle observes a started server.
type Handle struct {
	running atomic.Bool
	done    chan struct{}
	err     error
	addrs   []net.Addr
}

type addresser interface {
	Addr() net.Addr
}

func newHandle(adapters []adapter.Adapter) *Handle {
	h := &Handle{done: make(chan struct{})}
	for _, a := range adapters {
		if ad, ok := a.(addresser); ok {
			h.addrs = append(h.addrs, ad.Addr())
		}
	}
	h.running.Store(true)
	return h
}

func (h *Handle) finish(err error) {
	h.err = err
	h.running.Store(false)
	close(h.done)
}

// Running reports whether the accept loops are still running.
func (h *Handle) Running() bool {
	return h.running.Load()
}

// Done is closed once every adapter has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the server stops and returns the adapters' shutdown errors.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the shutdown error once Done is closed, nil before.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Addr returns the address of the first adapter that exposes one.
func (h *Handle) Addr() net.Addr {
	if len(h.addrs) == 0 {
		return nil
	}
	return h.addrs[0]
}

// Addrs returns the bound address of every adapter that exposes one.
func (h *Handle) Addrs() []net.Addr {
	return append([]net.Addr(nil), h.addrs...)
}
