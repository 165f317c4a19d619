package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_InMemory(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	defer Close(db)

	var version int
	require.NoError(t, db.Raw("PRAGMA user_version").Scan(&version).Error)
	assert.Equal(t, 1, version)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, Close(db))

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer Close(db)
	assert.True(t, db.Migrator().HasTable("t"))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
