package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		attrs := h.provider()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// Session is a ContextProvider whose sources can be registered after the
// logger is built, so components created later still annotate every record.
type Session struct {
	id      string
	mu      sync.RWMutex
	sources []ContextProvider
}

// NewSession creates a session tagged with id.
func NewSession(id string) *Session {
	return &Session{id: id}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Add registers another attribute source. Sources must not log.
func (s *Session) Add(p ContextProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, p)
}

// Attrs returns the session id followed by every source's attributes.
func (s *Session) Attrs() []slog.Attr {
	s.mu.RLock()
	sources := s.sources
	s.mu.RUnlock()

	attrs := []slog.Attr{slog.String("session", s.id)}
	for _, p := range sources {
		attrs = append(attrs, p()...)
	}
	return attrs
}
