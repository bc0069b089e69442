package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
)

//go:embed sql
var embedded embed.FS

// TableName is the goose version table.
const TableName = "schema_migrations"

// ErrUnknownDriver is returned for a driver with no migration set.
var ErrUnknownDriver = errors.New("no migrations for database driver")

// Status describes one migration file and whether it has been applied.
type Status struct {
	Version   int64     `json:"version"`
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
}

// Result describes one migration that was applied or rolled back.
type Result struct {
	Version  int64         `json:"version"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Empty    bool          `json:"empty,omitempty"`
}

// Migrator applies the embedded schema to a database.
type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

// New creates a Migrator for db. driver is "postgres" or "sqlite", matching
// the database configuration.
func New(db *sql.DB, driver string, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dialect goose.Dialect
	switch driver {
	case "postgres":
		dialect = goose.DialectPostgres
	case "sqlite":
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	fsys, err := fs.Sub(embedded, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations for %s: %w", driver, err)
	}

	logger = logger.With("component", "migrations", "correlation_id", uuid.New().String())
	store, err := newVersionStore(dialect)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider("", db, fsys,
		goose.WithStore(store),
		goose.WithLogger(&slogGooseLogger{logger: logger}),
		goose.WithVerbose(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]Result, error) {
	start := time.Now()
	m.logger.InfoContext(ctx, "applying pending migrations")

	results, err := m.provider.Up(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "migration failed", "error", err)
		return convertResults(results), fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.InfoContext(ctx, "migrations applied",
		"count", len(results),
		"duration_ms", time.Since(start).Milliseconds())
	return convertResults(results), nil
}

// Down rolls back the most recent migration. It returns nil with no error
// when nothing has been applied.
func (m *Migrator) Down(ctx context.Context) (*Result, error) {
	m.logger.InfoContext(ctx, "rolling back one migration version")

	result, err := m.provider.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			m.logger.InfoContext(ctx, "no migrations to roll back")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to roll back migration: %w", err)
	}

	converted := convertResult(result)
	m.logger.InfoContext(ctx, "migration rolled back", "version", converted.Version)
	return &converted, nil
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		st := Status{
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		}
		if s.Source != nil {
			st.Version = s.Source.Version
			st.Name = sourceName(s.Source)
		}
		out = append(out, st)
	}
	return out, nil
}

// Version returns the current schema version, 0 for an empty database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// HasPending reports whether any migration has not been applied yet.
func (m *Migrator) HasPending(ctx context.Context) (bool, error) {
	pending, err := m.provider.HasPending(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check pending migrations: %w", err)
	}
	return pending, nil
}

func convertResults(results []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, convertResult(r))
	}
	return out
}

func convertResult(r *goose.MigrationResult) Result {
	res := Result{Duration: r.Duration, Empty: r.Empty}
	if r.Source != nil {
		res.Version = r.Source.Version
		res.Name = sourceName(r.Source)
	}
	return res
}

func sourceName(s *goose.Source) string {
	return path.Base(s.Path)
}
