package adapter

import (
	"context"

	"github.com/marmos91/dittohttp/pkg/router"
)

// Adapter represents a protocol-specific server managed by the DittoHTTP facade.
//
// Lifecycle:
//  1. Creation: the adapter is created with protocol-specific configuration
//  2. Route injection: SetRouter() provides the read-only route trie
//  3. Bind: Listen() binds the socket so setup errors surface synchronously
//  4. Startup: Serve() runs the accept loop and blocks until shutdown
//  5. Shutdown: Stop() closes the listener and joins every connection
//
// Thread safety:
// SetRouter() and Listen() are called once before Serve(). Stop() may be
// called concurrently with Serve().
type Adapter interface {
	// Listen binds the configured address.
	//
	// Returns an error if the bind fails. Calling Listen more than once is a no-op.
	Listen() error

	// Serve runs the accept loop until Stop is called or ctx is cancelled.
	//
	// Serve calls Listen if the caller has not. When the context is cancelled,
	// Serve initiates shutdown itself.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if the listener fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// SetRouter injects the route trie used to dispatch requests.
	//
	// The trie is treated as read-only once Serve() starts.
	SetRouter(trie *router.Trie)

	// Stop initiates shutdown and waits for every connection worker.
	//
	// Implementations must be idempotent and safe to call concurrently with
	// Serve(). When ctx expires before workers finish, remaining connections
	// are force-closed and the context error is returned.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is bound to, or the configured
	// port before Listen.
	Port() int
}
