// Package fetch retrieves the JSON documents a profile refers to by URL:
// colormaps and availability tables. A Client does the HTTP work; the With*
// wrappers add retries, caching and request coalescing around any Fetcher.
package fetch

import (
	"context"
	"log/slog"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/ccviewer/navigator/internal/storage"
)

// Fetcher retrieves a JSON document.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a plain function to Fetcher.
type Func func(ctx context.Context, url string) ([]byte, error)

// FetchJSON calls f.
func (f Func) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// NewStack builds the fetcher used in production: concurrent requests for the
// same URL are coalesced, the cache is consulted, and only misses reach the
// network, with retries.
func NewStack(cfg config.FetchConfig, backend storage.Backend, logger *slog.Logger) Fetcher {
	var f Fetcher = NewClient(cfg.Timeout)
	f = WithRetry(f, cfg.MaxRetries, cfg.Backoff, logger)
	f = WithCache(f, backend, logger)
	return WithCoalescing(f)
}
