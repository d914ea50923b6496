// Package kvstore provides the durable key-value byte stores the dashboard
// persists its collections into. Backends are interchangeable behind Store:
// an in-memory map for tests, a directory of files, PostgreSQL, and MongoDB.
// Any backend can be wrapped with AES-256-GCM encryption at rest.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a flat key-value byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
