package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/marmos91/dittohttp/pkg/kvstore/memory"
	"github.com/marmos91/dittohttp/pkg/message"
	"github.com/marmos91/dittohttp/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trieRegistrar registers straight onto a trie so handlers can be resolved
// without a running server.
type trieRegistrar struct {
	*router.Trie
}

func (r trieRegistrar) Handle(method message.Method, path string, h router.Handler) error {
	return r.Register(path, method, h)
}

func setup(t *testing.T, store kvstore.Store) trieRegistrar {
	t.Helper()
	r := trieRegistrar{router.New()}
	require.NoError(t, Register(r, store))
	return r
}

func call(t *testing.T, r trieRegistrar, method message.Method, path, body string) *message.Response {
	t.Helper()
	h, err := r.Resolve(path, method)
	require.NoError(t, err, "%s %s", method, path)
	return h(&message.Request{Method: method, Path: path, Body: body})
}

func TestHealthAndIndex(t *testing.T) {
	r := setup(t, memory.NewMemoryStore(memory.MemoryStoreConfig{}))

	resp := call(t, r, message.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Body)

	resp = call(t, r, message.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DittoHTTP", resp.Body)
}

func TestRoutesListing(t *testing.T) {
	r := setup(t, memory.NewMemoryStore(memory.MemoryStoreConfig{}))

	resp := call(t, r, message.MethodGet, "/routes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, message.ContentTypeJSON, resp.ContentType)

	var routes []RouteInfo
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &routes))
	assert.Len(t, routes, 8)
	assert.Contains(t, routes, RouteInfo{Method: "DELETE", Path: "/kv/*"})
	assert.Contains(t, routes, RouteInfo{Method: "GET", Path: "/health"})
}

func TestKeyValueLifecycle(t *testing.T) {
	r := setup(t, memory.NewMemoryStore(memory.MemoryStoreConfig{}))

	resp := call(t, r, message.MethodGet, "/kv/greeting", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Key 'greeting' not found", resp.Body)

	resp = call(t, r, message.MethodPut, "/kv/greeting", "hello")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, r, message.MethodPost, "/kv/farewell", "bye")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, r, message.MethodGet, "/kv/greeting", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.Body)

	resp = call(t, r, message.MethodGet, "/kv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list KeyList
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &list))
	assert.Equal(t, []string{"farewell", "greeting"}, list.Keys)
	assert.Equal(t, 2, list.Count)

	resp = call(t, r, message.MethodDelete, "/kv/greeting", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = call(t, r, message.MethodDelete, "/kv/greeting", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreFullIs507(t *testing.T) {
	r := setup(t, memory.NewMemoryStore(memory.MemoryStoreConfig{MaxKeys: 1}))

	assert.Equal(t, http.StatusCreated, call(t, r, message.MethodPut, "/kv/a", "1").StatusCode)
	assert.Equal(t, http.StatusInsufficientStorage, call(t, r, message.MethodPut, "/kv/b", "2").StatusCode)
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }
func (s failingStore) Put(context.Context, string, []byte) error   { return s.err }
func (s failingStore) Delete(context.Context, string) error        { return s.err }
func (s failingStore) List(context.Context) ([]string, error)      { return nil, s.err }
func (s failingStore) Close() error                                { return nil }

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", kvstore.NotFound("x"), http.StatusNotFound},
		{"empty key", kvstore.ErrEmptyKey, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"backend failure", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setup(t, failingStore{err: tt.err})
			assert.Equal(t, tt.status, call(t, r, message.MethodGet, "/kv/x", "").StatusCode)
			assert.Equal(t, tt.status, call(t, r, message.MethodGet, "/kv", "").StatusCode)
		})
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	r := setup(t, memory.NewMemoryStore(memory.MemoryStoreConfig{}))

	err := Register(r, memory.NewMemoryStore(memory.MemoryStoreConfig{}))
	assert.ErrorIs(t, err, router.ErrDuplicateRoute)
}
