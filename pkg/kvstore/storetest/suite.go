// Package storetest holds the behaviour every kvstore.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) kvstore.Store

// Run exercises a backend against the kvstore.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("PutGet", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "greeting", []byte("hello")))
		got, err := s.Get(ctx, "greeting")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "k", []byte("v1")))
		require.NoError(t, s.Put(ctx, "k", []byte("v2")))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("NestedKeys", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "users/1/name", []byte("ada")))
		got, err := s.Get(ctx, "users/1/name")
		require.NoError(t, err)
		assert.Equal(t, "ada", string(got))
	})

	t.Run("EmptyValue", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "empty", nil))
		got, err := s.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, kvstore.ErrKeyNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "k"), kvstore.ErrKeyNotFound)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		assert.ErrorIs(t, s.Put(ctx, "", []byte("v")), kvstore.ErrEmptyKey)
		_, err := s.Get(ctx, "")
		assert.ErrorIs(t, err, kvstore.ErrEmptyKey)
		assert.ErrorIs(t, s.Delete(ctx, ""), kvstore.ErrEmptyKey)
	})

	t.Run("ListSorted", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		keys, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)

		for _, k := range []string{"b", "a/2", "c", "a/1"} {
			require.NoError(t, s.Put(ctx, k, []byte(k)))
		}
		keys, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a/1", "a/2", "b", "c"}, keys)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := open(t, newStore)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, s.Put(ctx, "k", []byte("v")), context.Canceled)
		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, context.Canceled)
		_, err = s.List(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		value := []byte("abc")
		require.NoError(t, s.Put(ctx, "k", value))
		value[0] = 'X'

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%02d", i)
				assert.NoError(t, s.Put(ctx, key, []byte(key)))
				_, err := s.Get(ctx, key)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		keys, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 20)
	})
}

func open(t *testing.T, newStore Factory) kvstore.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
