package badger

import (
	"context"
	"testing"

	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/marmos91/dittohttp/pkg/kvstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStoreInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) kvstore.Store {
		s, err := NewBadgerStore(context.Background(), BadgerStoreConfig{InMemory: true})
		require.NoError(t, err)
		return s
	})
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(ctx, BadgerStoreConfig{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "durable", []byte("yes")))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(ctx, BadgerStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, "yes", string(got))
}

func TestBadgerStoreRequiresPath(t *testing.T) {
	_, err := NewBadgerStore(context.Background(), BadgerStoreConfig{})
	assert.Error(t, err)
}
