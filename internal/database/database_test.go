package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelsmith11/locallibrary/internal/config"
)

func TestNewDatabase_SeedsReferenceDataOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	assert.True(t, db.IsSQLite())

	genres, err := db.Catalog.ListGenres()
	require.NoError(t, err)
	assert.Len(t, genres, len(defaultGenres))
	require.NoError(t, db.Close())

	// Reopening must not duplicate the defaults
	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	genres, err = db.Catalog.ListGenres()
	require.NoError(t, err)
	assert.Len(t, genres, len(defaultGenres))

	languages, err := db.Catalog.ListLanguages()
	require.NoError(t, err)
	assert.Len(t, languages, len(defaultLanguages))
}

func TestOpen_DriverErrors(t *testing.T) {
	_, err := Open(config.Database{Driver: config.DriverPostgres})
	assert.EqualError(t, err, "DATABASE_DSN is required for the postgres driver")

	_, err = Open(config.Database{Driver: "mysql"})
	assert.EqualError(t, err, `unsupported database driver "mysql"`)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "lib.db?_busy_timeout=5000", sqliteDSN("lib.db"))
	assert.Equal(t, "file:lib.db?mode=ro", sqliteDSN("file:lib.db?mode=ro"))
}
