// Package gormstorage implements the storage.Backend interface on any GORM
// dialect. The sqlite and postgres backends embed it and only differ in how
// they open the connection.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CachedTable is one fetched document keyed by its absolute URL.
type CachedTable struct {
	Key       string         `gorm:"primaryKey;size:2048"`
	Body      datatypes.JSON `gorm:"type:text;not null"` // JSON columns have numeric affinity on SQLite
	FetchedAt time.Time      `gorm:"not null;index"`
}

// TableName pins the table name regardless of naming strategy.
func (CachedTable) TableName() string {
	return "cached_tables"
}

// Backend stores documents in the cached_tables table.
type Backend struct {
	db *gorm.DB
}

// New creates a new GORM storage backend.
func New(db *gorm.DB) *Backend {
	return &Backend{db: db}
}

// DB returns the underlying connection, nil before a wrapping backend opens it.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// SetDB replaces the connection. Wrapping backends call it from Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.db = db
}

// Init runs the schema migration.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gorm backend has no database")
	}
	if err := b.db.AutoMigrate(&CachedTable{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close is a no-op; the owner of the connection closes it.
func (b *Backend) Close() error {
	return nil
}

// Get returns the document stored under key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.db == nil {
		return nil, false, errors.New("gorm backend has no database")
	}

	var row CachedTable
	err := b.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading cached table: %w", err)
	}
	return []byte(row.Body), true, nil
}

// Put upserts the document stored under key.
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if b.db == nil {
		return errors.New("gorm backend has no database")
	}

	row := CachedTable{
		Key:       key,
		Body:      datatypes.JSON(data),
		FetchedAt: time.Now().UTC(),
	}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "fetched_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("storing cached table: %w", err)
	}
	return nil
}

// Purge deletes documents fetched before cutoff and returns how many were removed.
func (b *Backend) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if b.db == nil {
		return 0, errors.New("gorm backend has no database")
	}
	res := b.db.WithContext(ctx).Where("fetched_at < ?", cutoff).Delete(&CachedTable{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging cached tables: %w", res.Error)
	}
	return res.RowsAffected, nil
}
