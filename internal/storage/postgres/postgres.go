// Package postgres implements the storage.Backend interface on PostgreSQL
// by wrapping the GORM backend.
package postgres

import (
	"fmt"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/ccviewer/navigator/internal/database"
	gormstorage "github.com/ccviewer/navigator/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection it owns.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
}

// New creates a new Postgres storage backend. The connection is opened by Init.
func New(cfg config.PostgresConfig) *Backend {
	return &Backend{
		Backend: gormstorage.New(nil),
		cfg:     cfg,
	}
}

// Init connects, validates the connection and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.SetDB(db)
	return b.Backend.Init()
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	db := b.DB()
	b.SetDB(nil)
	return database.Close(db)
}
