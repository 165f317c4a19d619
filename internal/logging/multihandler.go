package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
)

// Fanout sends each record to every handler enabled for its level.
// Nil handlers are dropped by NewFanout.
type Fanout []slog.Handler

// NewFanout combines handlers.
func NewFanout(handlers ...slog.Handler) Fanout {
	return lo.Filter(handlers, func(h slog.Handler, _ int) bool { return h != nil })
}

// Enabled reports whether any handler wants records at level.
func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.SomeBy(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

// Handle delivers r to every enabled handler. A failing handler does not stop
// delivery to the rest; all failures are returned joined.
func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) }))
}

func (f Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return Fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) }))
}
