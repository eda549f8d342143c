// Package kvstore defines the key/value storage used by the DittoHTTP demo API.
//
// Backends live in subpackages (memory, badger, s3) and are selected by
// pkg/config.CreateStore. Values are opaque bytes; keys are non-empty strings
// that may contain '/'.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get and Delete for a missing key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyKey is returned for an empty key.
	ErrEmptyKey = errors.New("key must not be empty")
)

// Store is a minimal key/value store.
//
// Implementations must be safe for concurrent use and honour ctx
// cancellation on every blocking call.
type Store interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value at key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key, or returns ErrKeyNotFound if it does not exist.
	Delete(ctx context.Context, key string) error

	// List returns every key in lexical order.
	List(ctx context.Context) ([]string, error)

	// Close releases the backend. The store must not be used afterwards.
	Close() error
}

// CheckKey returns ErrEmptyKey for an empty key.
func CheckKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// NotFound wraps ErrKeyNotFound with the key.
func NotFound(key string) error {
	return fmt.Errorf("%q: %w", key, ErrKeyNotFound)
}
