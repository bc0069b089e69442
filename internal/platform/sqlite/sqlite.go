package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used for SQLite.
const DriverName = "sqlite"

// busyTimeoutMillis bounds how long a connection waits on a locked database.
const busyTimeoutMillis = 5000

// Dialect is the sqlstore dialect for SQLite.
var Dialect = sqlstore.Dialect{
	Name:      "sqlite",
	TextTimes: true,
	MapError:  MapError,
}

// Open opens the database file named by cfg.URL, creating it and its parent
// directory when missing. SQLite allows one writer at a time, so the pool is
// limited to a single connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.URL); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := open(ctx, cfg.URL+"?"+pragmas(true))
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.InfoContext(ctx, "database connection established",
		"driver", Dialect.Name,
		"path", cfg.URL)
	return db, nil
}

// OpenMemory opens a private in-memory database. It is discarded when the
// returned handle is closed.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	return open(ctx, ":memory:?"+pragmas(false))
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func pragmas(wal bool) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	if wal {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return q.Encode()
}
