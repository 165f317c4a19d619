// Package redisstorage implements the storage.Backend interface on Redis so
// several viewer processes can share fetched tables.
package redisstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ccviewer/navigator/internal/config"

	"github.com/redis/go-redis/v9"
)

// Backend stores each document as a plain string value under Prefix+key.
type Backend struct {
	cfg    config.RedisConfig
	client *redis.Client
}

// New creates a new Redis storage backend. The client is created by Init.
func New(cfg config.RedisConfig) *Backend {
	return &Backend{cfg: cfg}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg config.RedisConfig) *Backend {
	return &Backend{cfg: cfg, client: client}
}

// Init creates the client if needed and pings the server.
func (b *Backend) Init() error {
	if b.client == nil {
		b.client = redis.NewClient(&redis.Options{
			Addr:     b.cfg.Addr,
			Password: b.cfg.Password,
			DB:       b.cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", b.cfg.Addr, err)
	}
	return nil
}

// Close closes the client.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// Get returns the document stored under key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.client == nil {
		return nil, false, errors.New("redis backend not initialized")
	}

	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Put stores data under key with the configured TTL (0 keeps it forever).
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if b.client == nil {
		return errors.New("redis backend not initialized")
	}

	if err := b.client.Set(ctx, b.key(key), data, b.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *Backend) key(k string) string {
	return b.cfg.Prefix + k
}
