package e2e

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
)

// TestConcurrentClients drives parallel connections below the admission
// ceiling; every request must be served.
func TestConcurrentClients(t *testing.T) {
	const clients = 16

	for _, config := range AllConfigurations() {
		config.MaxConnections = 64

		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			var wg sync.WaitGroup
			errs := make(chan error, clients)

			for i := 0; i < clients; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := tc.Do("PUT", fmt.Sprintf("/kv/key-%02d", i), fmt.Sprintf("value-%d", i))
					if err != nil {
						errs <- err
						return
					}
					if res.Status != http.StatusCreated {
						errs <- fmt.Errorf("key-%02d: status %d", i, res.Status)
					}
				}(i)
			}

			wg.Wait()
			close(errs)
			for err := range errs {
				t.Error(err)
			}

			for i := 0; i < clients; i++ {
				res := tc.MustDo("GET", fmt.Sprintf("/kv/key-%02d", i), "")
				if want := fmt.Sprintf("value-%d", i); res.Body != want {
					t.Errorf("key-%02d: got %q, want %q", i, res.Body, want)
				}
			}
		})
	}
}

// TestServerStopsCleanly verifies that Stop joins the adapter and that the
// port no longer accepts connections.
func TestServerStopsCleanly(t *testing.T) {
	tc := NewTestContext(t, &TestConfig{Name: "memory", Store: StoreMemory})

	if res := tc.MustDo("GET", "/health", ""); res.Status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.Status)
	}

	tc.Cleanup()

	select {
	case <-tc.Handle.Done():
	default:
		t.Fatal("Handle not done after Stop")
	}
	if tc.Handle.Running() {
		t.Error("Handle still running after Stop")
	}
	if _, err := tc.Do("GET", "/health", ""); err == nil {
		t.Error("Expected connection failure after Stop")
	}
}
