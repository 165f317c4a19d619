// internal/storage/memory/memory.go
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ccviewer/navigator/internal/config"

	lru "github.com/hashicorp/golang-lru/v2"
)

var errNotInitialized = errors.New("backend not initialized")

// DefaultSize is used when the configured size is not positive.
const DefaultSize = 256

// Backend keeps fetched documents in a bounded in-process LRU.
type Backend struct {
	cfg   config.MemoryConfig
	cache *lru.Cache[string, []byte]
	mu    sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init allocates the LRU
func (b *Backend) Init() error {
	size := b.cfg.Size
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return fmt.Errorf("creating lru cache: %w", err)
	}

	b.mu.Lock()
	b.cache = c
	b.mu.Unlock()
	return nil
}

// Close drops all entries
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache != nil {
		b.cache.Purge()
	}
	return nil
}

// Get returns a copy of the document stored under key
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	c := b.cache
	b.mu.RUnlock()
	if c == nil {
		return nil, false, fmt.Errorf("memory: %w", errNotInitialized)
	}

	data, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return clone(data), true, nil
}

// Put stores a copy of data under key, evicting the least recently used entry when full
func (b *Backend) Put(_ context.Context, key string, data []byte) error {
	b.mu.RLock()
	c := b.cache
	b.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("memory: %w", errNotInitialized)
	}

	c.Add(key, clone(data))
	return nil
}

// Len returns the number of cached documents
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cache == nil {
		return 0
	}
	return b.cache.Len()
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
