package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ScopeName identifies this program's records in the OTel log bridge.
const ScopeName = "github.com/ccviewer/navigator"

// Config selects the outputs Setup wires together.
type Config struct {
	Level string
	// File receives text records. When nil, records go to stdout instead.
	File io.Writer
	// Graylog receives JSON records, one GELF message per record.
	Graylog io.Writer
	// Provider enables the OTel log bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// Context adds attributes to every record, such as the session id.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	stdout io.Writer

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{stdout: os.Stdout}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. It can be called again to replace
// the outputs; loggers handed out earlier keep the old ones.
func (m *SlogManager) Setup(cfg Config) {
	lvl := parseLevel(cfg.Level)
	m.logProvider = cfg.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if cfg.File != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(m.stdout, handlerOpts))
	}

	if cfg.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(cfg.Graylog, handlerOpts))
	}

	if cfg.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ScopeName, otelslog.WithLoggerProvider(cfg.Provider)))
	}

	var handler slog.Handler = NewFanout(handlers...)
	if cfg.Context != nil {
		handler = NewContextHandler(handler, cfg.Context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
