package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccviewer/navigator/internal/config"
	gormstorage "github.com/ccviewer/navigator/internal/storage/gorm"
	sqlitestorage "github.com/ccviewer/navigator/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, profilePath string) string {
	t.Helper()
	return writeFixtureWithStorage(t, profilePath, map[string]any{"type": "memory"})
}

func writeFixtureWithStorage(t *testing.T, profilePath string, storage map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"profile": map[string]any{
			"path":            profilePath,
			"initialLayer":    "sst",
			"initialFragment": "2006-Jan-05,00:00:00",
		},
		"storage": storage,
		"server":  map[string]any{"addr": "127.0.0.1:0"},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), data, 0o644))
	return dir
}

func TestRun_BadFlag(t *testing.T) {
	err := run(context.Background(), []string{"-nope"})
	assert.Error(t, err)
}

func TestRun_MissingProfile(t *testing.T) {
	dir := writeFixture(t, filepath.Join(t.TempDir(), "absent.json"))

	err := run(context.Background(), []string{"-config", dir, "-env", filepath.Join(dir, "absent.env")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading profile")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	profilePath := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(`
origin: [1136073600000, 0]
prefix: http://127.0.0.1:1
zoom:
  0: {width: 86400000}
layers:
  sst:
    colormap: {steps: [0, 1]}
    availability:
      0: [[0, 10]]
`), 0o644))
	dir := writeFixture(t, profilePath)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"-config", dir}) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestRun_ExpiresStaleTables(t *testing.T) {
	sqliteCfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "tables.db")}
	ctx := context.Background()

	seed := sqlitestorage.New(sqliteCfg)
	require.NoError(t, seed.Init())
	require.NoError(t, seed.Put(ctx, "http://x/old.json", []byte(`{"0":[[0,1]]}`)))
	require.NoError(t, seed.Put(ctx, "http://x/new.json", []byte(`{"0":[[2,3]]}`)))
	require.NoError(t, seed.DB().Model(&gormstorage.CachedTable{}).
		Where("key = ?", "http://x/old.json").
		Update("fetched_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, seed.Close())

	dir := writeFixtureWithStorage(t, filepath.Join(t.TempDir(), "absent.json"), map[string]any{
		"type":   "sqlite",
		"maxAge": "24h",
		"sqlite": map[string]any{"path": sqliteCfg.Path},
	})
	err := run(ctx, []string{"-config", dir, "-env", filepath.Join(dir, "absent.env")})
	require.ErrorContains(t, err, "reading profile")

	check := sqlitestorage.New(sqliteCfg)
	require.NoError(t, check.Init())
	defer check.Close()

	_, found, err := check.Get(ctx, "http://x/old.json")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = check.Get(ctx, "http://x/new.json")
	require.NoError(t, err)
	assert.True(t, found)
}
