// Package sqlitestorage implements the storage.Backend interface on SQLite,
// either a file that survives restarts or a private in-memory database.
// It wraps the GORM backend via composition.
package sqlitestorage

import (
	"fmt"

	"github.com/ccviewer/navigator/internal/config"
	"github.com/ccviewer/navigator/internal/database"
	gormstorage "github.com/ccviewer/navigator/internal/storage/gorm"
)

// Backend wraps the GORM backend with a SQLite connection it owns.
type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New(cfg config.SQLiteConfig) *Backend {
	return &Backend{
		Backend: gormstorage.New(nil),
		cfg:     cfg,
	}
}

// Init opens the database and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenSQLite(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	b.SetDB(db)
	return b.Backend.Init()
}

// Close closes the database.
func (b *Backend) Close() error {
	db := b.DB()
	b.SetDB(nil)
	return database.Close(db)
}
