// Package memory implements an in-memory kvstore.Store.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/marmos91/dittohttp/pkg/kvstore"
)

// MemoryStore keeps values in a map. Contents are lost on Close.
//
// Thread Safety:
// All operations are guarded by a single read-write mutex.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// maxKeys caps the number of keys; 0 means unlimited.
	maxKeys int
}

// MemoryStoreConfig configures a MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys caps the number of stored keys. 0 means unlimited.
	MaxKeys int `mapstructure:"max_keys"`
}

var (
	// ErrStoreFull is returned by Put when MaxKeys would be exceeded.
	ErrStoreFull = errors.New("memory store full")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("memory store closed")
)

// NewMemoryStore creates an empty store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string][]byte),
		maxKeys: cfg.MaxKeys,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	value, ok := s.data[key]
	if !ok {
		return nil, kvstore.NotFound(key)
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, exists := s.data[key]; !exists && s.maxKeys > 0 && len(s.data) >= s.maxKeys {
		return ErrStoreFull
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return kvstore.NotFound(key)
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}
