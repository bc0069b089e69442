//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Environment variables naming externally managed test servers.
const (
	EnvDatabaseURL = "SCRY_TEST_DB_URL"
	EnvRedisURL    = "SCRY_TEST_REDIS_URL"
)

// TestTimeout bounds container startup and schema setup.
const TestTimeout = 2 * time.Minute

const postgresImage = "postgres:16-alpine"

// PostgresURL returns a connection string for a test database, starting a
// container when EnvDatabaseURL is unset. The container is removed when the
// test finishes.
func PostgresURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		return url
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	container, err := tcpg.Run(ctx, postgresImage,
		tcpg.WithDatabase("scry_test"),
		tcpg.WithUsername("scry"),
		tcpg.WithPassword("scry"),
		tcpg.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "failed to start postgres container")

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// Postgres opens a migrated test database. The connection is closed when
// the test finishes.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	cfg := config.DatabaseConfig{
		Driver:          "postgres",
		URL:             PostgresURL(t),
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}
	logger := slog.New(slog.DiscardHandler)

	db, err := postgres.Open(ctx, cfg, logger)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db, cfg.Driver, logger)
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err, "failed to migrate test database")
	return db
}
