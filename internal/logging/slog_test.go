package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func newTestManager(stdout *bytes.Buffer) *SlogManager {
	m := NewSlogManager()
	m.stdout = stdout
	return m
}

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	var stdout, fileBuf bytes.Buffer
	m := newTestManager(&stdout)
	m.Setup(Config{File: &fileBuf, Level: "info"})
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	// The "Logging initialized" message from Setup also goes to file, not stdout
	assert.Empty(t, stdout.String(), "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	var stdout bytes.Buffer
	m := newTestManager(&stdout)
	m.Setup(Config{Level: "info"})
	m.Logger().Info("hello console")

	assert.Contains(t, stdout.String(), "hello console", "log should appear on stdout")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(Config{File: &buf, Level: tt.level})

			m.Logger().Debug("zoom stepped")
			m.Logger().Error("fetch gave up")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "zoom stepped"))
			assert.Contains(t, buf.String(), "fetch gave up")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	m.Setup(Config{File: &buf1, Level: "info"})
	m.Logger().Info("first")

	m.Setup(Config{File: &buf2, Level: "info"})
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

func TestSetup_Graylog_JSONRecords(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Config{File: &file, Graylog: &gelf, Level: "info"})

	m.Logger().Warn("layer fetch failed", "layer", "sst")

	lines := strings.Split(strings.TrimSpace(gelf.String()), "\n")
	require.Len(t, lines, 2, "init record plus ours")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "layer fetch failed", rec["msg"])
	assert.Equal(t, "sst", rec["layer"])
}

func TestSetup_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	zoom := 0
	m := NewSlogManager()
	m.Setup(Config{File: &buf, Level: "info", Context: func() []slog.Attr {
		return []slog.Attr{slog.Int("zoom", zoom)}
	}})

	zoom = 3
	m.Logger().Info("zoomed")

	assert.Contains(t, buf.String(), "zoomed zoom=3")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	logger := m.Logger()
	assert.Equal(t, slog.Default(), logger)
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewSlogManager()
	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just validates non-nil path
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(Config{File: &buf, Level: "info", Provider: provider})

	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Config{File: &buf, Level: "info", Provider: provider})

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
}
