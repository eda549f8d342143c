// Package badger implements a persistent kvstore.Store on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/kvstore"
)

// keyPrefix namespaces API keys so the database can hold other data later.
const keyPrefix = "kv:"

// BadgerStore persists values in an embedded BadgerDB.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store adds no locking.
type BadgerStore struct {
	db     *badger.DB
	dbPath string
}

// BadgerStoreConfig configures a BadgerStore.
type BadgerStoreConfig struct {
	// DBPath is the directory holding the database files.
	// Required unless InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in RAM. Used by tests and ephemeral runs.
	InMemory bool `mapstructure:"in_memory"`
}

// NewBadgerStore opens (or creates) the database described by cfg.
func NewBadgerStore(ctx context.Context, cfg BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, errors.New("badger store: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	logger.Debug("Badger store opened: path=%q in_memory=%v", cfg.DBPath, cfg.InMemory)

	return &BadgerStore{db: db, dbPath: cfg.DBPath}, nil
}

func dbKey(key string) []byte {
	return []byte(keyPrefix + key)
}

func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, kvstore.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %q: %w", key, err)
	}
	return value, nil
}

func (s *BadgerStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}

	// Badger keeps a reference to the slice until commit.
	value = append([]byte{}, value...)

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), value)
	}); err != nil {
		return fmt.Errorf("badger put %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := kvstore.CheckKey(key); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(dbKey(key)); err != nil {
			return err
		}
		return txn.Delete(dbKey(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return kvstore.NotFound(key)
	}
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// List scans the key prefix without fetching values. Badger iterates in
// byte order, which is lexical order for the keys.
func (s *BadgerStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return keys, nil
}

func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB at %s: %w", s.dbPath, err)
	}
	return nil
}
