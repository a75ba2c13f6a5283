package db

import (
	"context"
	"time"
)

// Store is the Redis-compatible facade used for the search cache and metadata.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HPut(ctx context.Context, key string, fields map[string]string) error
	HSetNX(ctx context.Context, key string, fields map[string]string) (bool, error)
	HReplace(ctx context.Context, key string, fields map[string]string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DocumentStore writes batches of records into named collections.
type DocumentStore interface {
	Pinger
	InsertMany(ctx context.Context, collection string, docs []map[string]any) (InsertResult, error)
	Close(ctx context.Context) error
}

// InsertResult reports an unordered insert: documents that failed individually
// appear in WriteErrors and do not stop the rest of the batch.
type InsertResult struct {
	Inserted    int
	WriteErrors []WriteError
}

// WriteError describes one rejected document; Index is relative to the batch.
type WriteError struct {
	Index   int
	Code    int
	Message string
}
