package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type retrying struct {
	next        Fetcher
	maxRetries  int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// WithRetry retries failed fetches with exponential backoff. It respects
// context cancellation between attempts and gives up early on responses that
// retrying cannot fix, such as 404.
//
//   - maxRetries: maximum number of retry attempts (0 = no retry)
//   - baseBackoff: initial wait between retries, doubled each attempt
//   - logger: used to log retry attempts (may be nil for silent retries)
func WithRetry(next Fetcher, maxRetries int, baseBackoff time.Duration, logger *slog.Logger) Fetcher {
	return &retrying{next: next, maxRetries: maxRetries, baseBackoff: baseBackoff, logger: logger}
}

func (r *retrying) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		data, err := r.next.FetchJSON(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			return nil, lastErr
		}

		if attempt < r.maxRetries {
			wait := r.baseBackoff * (1 << uint(attempt))
			if r.logger != nil {
				r.logger.WarnContext(ctx, "Retrying fetch",
					"url", url,
					"attempt", attempt+1,
					"max_retries", r.maxRetries,
					"backoff_ms", wait.Milliseconds(),
					"error", err)
			}
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
