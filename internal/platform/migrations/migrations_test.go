package migrations_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrator(t *testing.T) (*migrations.Migrator, *sql.DB, *logger.TestLogBuffer) {
	t.Helper()
	db, err := sqlite.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log, buf := logger.GetTestLogger(t)
	m, err := migrations.New(db, "sqlite", log)
	require.NoError(t, err)
	return m, db, buf
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestUpDown(t *testing.T) {
	ctx := context.Background()
	m, db, buf := newMigrator(t)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	pending, err := m.HasPending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	results, err := m.Up(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].Version)
	assert.Equal(t, "00001_create_decks_and_cards.sql", results[0].Name)

	for _, table := range []string{"decks", "cards", "review_logs", "daily_progress", "tasks", migrations.TableName} {
		assert.True(t, tableExists(t, db, table), table)
	}

	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	results, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, results, "second run applies nothing")

	rolledBack, err := m.Down(ctx)
	require.NoError(t, err)
	require.NotNil(t, rolledBack)
	assert.Equal(t, int64(3), rolledBack.Version)
	assert.False(t, tableExists(t, db, "tasks"))
	assert.True(t, tableExists(t, db, "cards"))

	logger.AssertLogContains(t, buf, `"component":"migrations"`)
}

func TestDownOnEmptyDatabase(t *testing.T) {
	m, _, _ := newMigrator(t)

	result, err := m.Down(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newMigrator(t)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.False(t, s.Applied, s.Name)
	}

	_, err = m.Up(ctx)
	require.NoError(t, err)

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	for i, s := range statuses {
		assert.Equal(t, int64(i+1), s.Version)
		assert.True(t, s.Applied, s.Name)
		assert.False(t, s.AppliedAt.IsZero())
	}
}

func TestUnknownDriver(t *testing.T) {
	db, err := sqlite.OpenMemory(context.Background())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = migrations.New(db, "mysql", slog.Default())
	assert.ErrorIs(t, err, migrations.ErrUnknownDriver)
}
