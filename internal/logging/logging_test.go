package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	tests := []struct {
		logsDir string
		want    string
	}{
		{"navlogs", filepath.Join("navlogs", "navigator.20260212_213836.log")},
		{"./navlogs", filepath.Join("navlogs", "navigator.20260212_213836.log")},
		{filepath.Join("/var", "log", "navigator"), filepath.Join("/var", "log", "navigator", "navigator.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.logsDir, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "navigator", sessionStart))
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := OpenLogFile(dir, "navigator", sessionStart)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, LogFilePath(dir, "navigator", sessionStart), f.Name())
	_, err = os.Stat(f.Name())
	assert.NoError(t, err)
}

func TestOpenLogFile_RotatesExisting(t *testing.T) {
	dir := t.TempDir()
	path := LogFilePath(dir, "navigator", sessionStart)
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	f, err := OpenLogFile(dir, "navigator", sessionStart)
	require.NoError(t, err)
	defer f.Close()

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(old))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
