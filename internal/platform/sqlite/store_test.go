package sqlite_test

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func migratedMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db, sqlite.Dialect.Name, discardLogger())
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)
	return db
}

func TestStores(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *sqlstore.Stores {
		return sqlstore.New(migratedMemoryDB(t), sqlite.Dialect, discardLogger())
	})
}

func TestOpenCreatesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "scry.db")

	db, err := sqlite.Open(ctx, config.DatabaseConfig{Driver: "sqlite", URL: path, MaxOpenConns: 1}, discardLogger())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var journal string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var foreignKeys int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	assert.FileExists(t, path)
}
