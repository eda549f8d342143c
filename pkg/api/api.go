// Package api registers the demo routes served by cmd/dittohttp: a health
// check, a route listing and a small key/value resource backed by a
// kvstore.Store.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/marmos91/dittohttp/pkg/kvstore/memory"
	"github.com/marmos91/dittohttp/pkg/message"
	"github.com/marmos91/dittohttp/pkg/router"
)

// storeTimeout bounds every store call made on behalf of a request.
const storeTimeout = 5 * time.Second

// Registrar is the registration surface of the server facade.
type Registrar interface {
	Handle(method message.Method, path string, handler router.Handler) error
	Routes() []router.Route
}

// RouteInfo is the JSON shape of one entry in GET /routes.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// KeyList is the JSON body of GET /kv.
type KeyList struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// Register attaches every demo route to r.
//
//	GET    /          banner
//	GET    /health    "ok"
//	GET    /routes    registered routes as JSON
//	GET    /kv        stored keys as JSON
//	GET    /kv/*      value of one key
//	PUT    /kv/*      store the request body (also POST)
//	DELETE /kv/*      remove one key
func Register(r Registrar, store kvstore.Store) error {
	kv := &kvHandlers{store: store}

	routes := []struct {
		method  message.Method
		path    string
		handler router.Handler
	}{
		{message.MethodGet, "/", index},
		{message.MethodGet, "/health", health},
		{message.MethodGet, "/routes", listRoutes(r)},
		{message.MethodGet, "/kv", kv.list},
		{message.MethodGet, "/kv/*", kv.get},
		{message.MethodPut, "/kv/*", kv.put},
		{message.MethodPost, "/kv/*", kv.put},
		{message.MethodDelete, "/kv/*", kv.delete},
	}

	for _, rt := range routes {
		if err := r.Handle(rt.method, rt.path, rt.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.path, err)
		}
	}
	return nil
}

func index(*message.Request) *message.Response {
	return message.Text(http.StatusOK, "DittoHTTP")
}

func health(*message.Request) *message.Response {
	return message.Text(http.StatusOK, "ok")
}

func listRoutes(r Registrar) router.Handler {
	return func(*message.Request) *message.Response {
		routes := r.Routes()
		infos := make([]RouteInfo, 0, len(routes))
		for _, rt := range routes {
			infos = append(infos, RouteInfo{Method: rt.Method.String(), Path: rt.Path})
		}
		return message.JSON(http.StatusOK, infos)
	}
}

type kvHandlers struct {
	store kvstore.Store
}

// keyOf returns the last path segment, which is what the /kv/* wildcard matched.
func keyOf(req *message.Request) string {
	parts := router.Split(req.Path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func (h *kvHandlers) list(req *message.Request) *message.Response {
	ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
	defer cancel()

	keys, err := h.store.List(ctx)
	if err != nil {
		return storeError(req, err)
	}
	return message.JSON(http.StatusOK, KeyList{Keys: keys, Count: len(keys)})
}

func (h *kvHandlers) get(req *message.Request) *message.Response {
	ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
	defer cancel()

	value, err := h.store.Get(ctx, keyOf(req))
	if err != nil {
		return storeError(req, err)
	}
	return message.Text(http.StatusOK, string(value))
}

func (h *kvHandlers) put(req *message.Request) *message.Response {
	ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
	defer cancel()

	key := keyOf(req)
	if err := h.store.Put(ctx, key, []byte(req.Body)); err != nil {
		return storeError(req, err)
	}
	logger.Debug("kv: stored %q (%d bytes) from %s", key, len(req.Body), req.RemoteAddr)
	return message.Text(http.StatusCreated, fmt.Sprintf("Stored '%s'", key))
}

func (h *kvHandlers) delete(req *message.Request) *message.Response {
	ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
	defer cancel()

	if err := h.store.Delete(ctx, keyOf(req)); err != nil {
		return storeError(req, err)
	}
	return message.Text(http.StatusNoContent, "")
}

// storeError maps a store failure onto a response.
func storeError(req *message.Request, err error) *message.Response {
	switch {
	case errors.Is(err, kvstore.ErrKeyNotFound):
		return message.Text(http.StatusNotFound, fmt.Sprintf("Key '%s' not found", keyOf(req)))
	case errors.Is(err, kvstore.ErrEmptyKey):
		return message.BadRequest(err)
	case errors.Is(err, memory.ErrStoreFull):
		return message.Text(http.StatusInsufficientStorage, "Store is full")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn("kv: %s %s: %v", req.Method, req.Path, err)
		return message.Text(http.StatusServiceUnavailable, "Store unavailable")
	default:
		logger.Error("kv: %s %s: %v", req.Method, req.Path, err)
		return message.InternalError()
	}
}
