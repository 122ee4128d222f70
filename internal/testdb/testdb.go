// Package testdb opens migrated throwaway databases for tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"stockroom/m/internal/database"
	"stockroom/m/internal/migrations"
)

// New returns a migrated database stored in a per-test temp directory,
// together with the file path.
func New(t testing.TB) (*sqlx.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(db))
	return db, path
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sqlx.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}
