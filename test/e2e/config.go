package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohttp/pkg/kvstore"
	kvbadger "github.com/marmos91/dittohttp/pkg/kvstore/badger"
	kvmemory "github.com/marmos91/dittohttp/pkg/kvstore/memory"
	kvs3 "github.com/marmos91/dittohttp/pkg/kvstore/s3"
)

// StoreType represents the type of key/value store behind the /kv routes
type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreBadger StoreType = "badger"
	StoreS3     StoreType = "s3"
)

// TestContextProvider is an interface for providing test context dependencies
type TestContextProvider interface {
	CreateTempDir(prefix string) string
	GetConfig() *TestConfig
}

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name  string
	Store StoreType

	// MaxConnections overrides the adapter's admission ceiling when non-zero.
	MaxConnections int

	// S3-specific fields (set by localstack setup)
	s3Client *s3.Client
	s3Bucket string
}

// String returns a string representation of the configuration
func (tc *TestConfig) String() string {
	return string(tc.Store)
}

// CreateStore creates a store based on the configuration
func (tc *TestConfig) CreateStore(ctx context.Context, testCtx TestContextProvider) (kvstore.Store, error) {
	switch tc.Store {
	case StoreMemory:
		return kvmemory.NewMemoryStore(kvmemory.MemoryStoreConfig{}), nil

	case StoreBadger:
		dbPath := filepath.Join(testCtx.CreateTempDir("dittohttp-badger-*"), "kv.db")
		store, err := kvbadger.NewBadgerStore(ctx, kvbadger.BadgerStoreConfig{DBPath: dbPath})
		if err != nil {
			return nil, fmt.Errorf("failed to create badger store: %w", err)
		}
		return store, nil

	case StoreS3:
		config := testCtx.GetConfig()
		if config.s3Client == nil {
			return nil, fmt.Errorf("S3 client not initialized (localstack not running?)")
		}

		store, err := kvs3.NewS3Store(ctx, kvs3.S3StoreConfig{
			Client:    config.s3Client,
			Bucket:    config.s3Bucket,
			KeyPrefix: "e2e/",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store type: %s", tc.Store)
	}
}

// AllConfigurations returns all test configurations to run.
//
// The S3 configuration is included only when LOCALSTACK_ENDPOINT is set.
func AllConfigurations() []*TestConfig {
	configs := []*TestConfig{
		{Name: "memory", Store: StoreMemory},
		{Name: "badger", Store: StoreBadger},
	}

	if os.Getenv("LOCALSTACK_ENDPOINT") != "" {
		configs = append(configs, &TestConfig{Name: "s3", Store: StoreS3})
	}

	return configs
}
