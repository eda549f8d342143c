package config

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/dittohttp/pkg/kvstore/badger"
	"github.com/marmos91/dittohttp/pkg/kvstore/memory"
)

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{"max_keys": 5},
	})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*memory.MemoryStore); !ok {
		t.Errorf("Expected *memory.MemoryStore, got %T", store)
	}
}

func TestCreateStore_MemoryNegativeLimit(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "memory",
		Memory: map[string]any{"max_keys": -1},
	})
	if err == nil {
		t.Fatal("Expected error for negative max_keys")
	}
}

func TestCreateStore_Badger(t *testing.T) {
	store, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*badger.BadgerStore); !ok {
		t.Errorf("Expected *badger.BadgerStore, got %T", store)
	}
}

func TestCreateStore_BadgerMissingPath(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateStore_S3MissingBucket(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateStore_S3MissingRegion(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "kv"},
	})
	if err == nil || !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown store type") {
		t.Errorf("Expected 'unknown store type' error, got: %v", err)
	}
}
