package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittohttp/pkg/kvstore"
	"github.com/marmos91/dittohttp/pkg/kvstore/badger"
	"github.com/marmos91/dittohttp/pkg/kvstore/memory"
	kvS3 "github.com/marmos91/dittohttp/pkg/kvstore/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates the key/value store selected by cfg.Type.
//
// The type-specific option map is decoded with mapstructure into the
// store's own configuration struct and handed to its constructor.
//
// Supported types:
//   - "memory": pkg/kvstore/memory (ephemeral)
//   - "badger": pkg/kvstore/badger (embedded, persistent)
//   - "s3": pkg/kvstore/s3 (Amazon S3 or compatible storage)
func CreateStore(ctx context.Context, cfg *StoreConfig) (kvstore.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(ctx, cfg.Memory)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger, s3)", cfg.Type)
	}
}

func createMemoryStore(ctx context.Context, options map[string]any) (kvstore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg memory.MemoryStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}
	if storeCfg.MaxKeys < 0 {
		return nil, fmt.Errorf("memory store: max_keys must be >= 0")
	}

	return memory.NewMemoryStore(storeCfg), nil
}

func createBadgerStore(ctx context.Context, options map[string]any) (kvstore.Store, error) {
	var storeCfg badger.BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	store, err := badger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}
	return store, nil
}

func createS3Store(ctx context.Context, options map[string]any) (kvstore.Store, error) {
	type S3StoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeOpts S3StoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeOpts.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := kvS3.NewClient(ctx, kvS3.ClientConfig{
		Region:          storeOpts.Region,
		Endpoint:        storeOpts.Endpoint,
		AccessKeyID:     storeOpts.AccessKeyID,
		SecretAccessKey: storeOpts.SecretAccessKey,
		MaxRetries:      storeOpts.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	store, err := kvS3.NewS3Store(ctx, kvS3.S3StoreConfig{
		Client:    client,
		Bucket:    storeOpts.Bucket,
		KeyPrefix: storeOpts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}
	return store, nil
}
