// Package e2e runs the DittoHTTP server end to end: real loopback sockets,
// the HTTP adapter, the demo API and each key/value store backend.
package e2e

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittohttp/internal/logger"
	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/api"
	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/marmos91/dittohttp/pkg/server"
)

// TestContext provides a complete testing environment with:
// - A running DittoHTTP server on an ephemeral port
// - The demo API over the configured store
// - Cleanup mechanisms
type TestContext struct {
	T        testing.TB
	Config   *TestConfig
	Server   *server.DittoServer
	Handle   *server.Handle
	Store    kvstore.Store
	Addr     string
	ctx      context.Context
	cancel   context.CancelFunc
	tempDirs []string
	s3       *LocalstackHelper
}

// NewTestContext creates a new test environment with the specified
// configuration and starts the server.
func NewTestContext(t testing.TB, config *TestConfig) *TestContext {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	tc := &TestContext{
		T:      t,
		Config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	if config.Store == StoreS3 {
		tc.s3 = NewLocalstackHelper(t)
		SetupS3Config(t, config, tc.s3, uuid.NewString()[:8])
	}

	tc.setupStore()
	tc.startServer()

	return tc
}

func (tc *TestContext) setupStore() {
	tc.T.Helper()

	var err error
	tc.Store, err = tc.Config.CreateStore(tc.ctx, tc)
	if err != nil {
		tc.T.Fatalf("Failed to create store: %v", err)
	}
}

// startServer starts DittoHTTP with the demo API over the configured store
func (tc *TestContext) startServer() {
	tc.T.Helper()

	// Functional tests, not debugging sessions.
	logger.SetLevel("ERROR")

	tc.Server = server.New()
	if err := api.Register(tc.Server, tc.Store); err != nil {
		tc.T.Fatalf("Failed to register API: %v", err)
	}

	httpConfig := httpadapter.HTTPConfig{
		Enabled:          true,
		Port:             0,
		MaxConnections:   tc.Config.MaxConnections,
		FirstByteTimeout: 2 * time.Second,
		ShutdownTimeout:  5 * time.Second,
	}
	if err := tc.Server.AddAdapter(httpadapter.New(httpConfig, nil)); err != nil {
		tc.T.Fatalf("Failed to add HTTP adapter: %v", err)
	}

	h, err := tc.Server.Start(tc.ctx)
	if err != nil {
		tc.T.Fatalf("Failed to start server: %v", err)
	}
	tc.Handle = h
	tc.Addr = h.Addr().String()
}

// Cleanup stops the server, closes the store, and removes temporary files
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tc.Server.Stop(stopCtx); err != nil {
		tc.T.Logf("Server stop error: %v", err)
	}
	tc.cancel()

	if tc.Store != nil {
		_ = tc.Store.Close()
	}
	if tc.s3 != nil {
		tc.s3.Cleanup()
	}

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

// CreateTempDir creates a temporary directory and registers it for cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}

// GetConfig returns the test configuration
func (tc *TestContext) GetConfig() *TestConfig {
	return tc.Config
}

// Result is a response as seen by a client.
type Result struct {
	Status      int
	ContentType string
	Body        string
}

// Do sends one request on a fresh connection and reads the response until
// the server closes the connection.
func (tc *TestContext) Do(method, path, body string) (*Result, error) {
	conn, err := net.DialTimeout("tcp", tc.Addr, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&b, "Host: %s\r\n", tc.Addr)
	b.WriteString("User-Agent: dittohttp-e2e\r\n")
	b.WriteString("Connection: close\r\n")
	if body != "" {
		b.WriteString("Content-Type: text/plain\r\n")
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)

	if _, err := io.WriteString(conn, b.String()); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(data),
	}, nil
}

// MustDo is Do that fails the test on transport errors.
func (tc *TestContext) MustDo(method, path, body string) *Result {
	tc.T.Helper()

	res, err := tc.Do(method, path, body)
	if err != nil {
		tc.T.Fatalf("%s %s: %v", method, path, err)
	}
	return res
}
