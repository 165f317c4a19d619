package fetch

import (
	"context"
	"log/slog"

	"github.com/ccviewer/navigator/internal/storage"
)

type cached struct {
	next    Fetcher
	backend storage.Backend
	logger  *slog.Logger
}

// WithCache serves documents from backend when present and stores every
// successful fetch in it. Profile documents do not change once published, so
// entries never expire here; backends may still evict them.
// Cache errors are logged and otherwise ignored.
func WithCache(next Fetcher, backend storage.Backend, logger *slog.Logger) Fetcher {
	if backend == nil {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cached{next: next, backend: backend, logger: logger}
}

func (c *cached) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	data, found, err := c.backend.Get(ctx, url)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache read failed", "url", url, "error", err)
	} else if found {
		c.logger.DebugContext(ctx, "Cache hit", "url", url)
		return data, nil
	}

	data, err = c.next.FetchJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.backend.Put(ctx, url, data); err != nil {
		c.logger.WarnContext(ctx, "Cache write failed", "url", url, "error", err)
	}
	return data, nil
}
