package storage

import (
	"fmt"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/ccviewer/navigator/internal/storage/memory"
	"github.com/ccviewer/navigator/internal/storage/postgres"
	redisstorage "github.com/ccviewer/navigator/internal/storage/redis"
	sqlitestorage "github.com/ccviewer/navigator/internal/storage/sqlite"
)

// NewBackend creates a cache backend based on configuration. It returns a nil
// Backend for type "none". The backend still needs Init.
func NewBackend(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite), nil
	case "postgres":
		return postgres.New(cfg.Postgres), nil
	case "redis":
		return redisstorage.New(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
