// Package storage caches fetched layer tables by URL so that repeated
// sessions do not download immutable documents again.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotInitialized is returned by backends used before Init.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Backend is the interface all cache implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Get returns the document stored under key. found is false on a miss.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	// Put stores data under key, replacing any previous document.
	Put(ctx context.Context, key string, data []byte) error
}

// Purger is implemented by backends that record when each document was
// fetched and can drop the stale ones.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Expire removes documents fetched more than maxAge ago and reports how many
// were removed. It is a no-op for a non-positive maxAge and for backends that
// do not implement Purger.
func Expire(ctx context.Context, b Backend, maxAge time.Duration) (int64, error) {
	p, ok := b.(Purger)
	if !ok || maxAge <= 0 {
		return 0, nil
	}
	return p.Purge(ctx, time.Now().Add(-maxAge))
}
