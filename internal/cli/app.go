package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
	"github.com/phrazzld/scry-fsrs/internal/platform/redis"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore"
	"github.com/phrazzld/scry-fsrs/internal/service"
	"github.com/phrazzld/scry-fsrs/internal/service/card_review"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/task"
)

// drainTimeout bounds how long a command waits for background tasks on exit.
const drainTimeout = 30 * time.Second

// application holds the dependencies shared by the commands and ensures they
// are released when a command finishes.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	stores *sqlstore.Stores

	progress      store.ProgressStore
	closeProgress func() error

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner

	deckService       service.DeckService
	cardReviewService card_review.CardReviewService
}

// openDatabase connects to the configured backend and returns the handle
// together with its SQL dialect.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, sqlstore.Dialect, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg, logger)
		return db, postgres.Dialect, err
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg, logger)
		return db, sqlite.Dialect, err
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("%w: %q", migrations.ErrUnknownDriver, cfg.Driver)
	}
}

// newApplication opens the database, applies pending migrations when
// configured to, and wires stores, services and the background task runner.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, dialect, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		stores: sqlstore.New(db, dialect, logger),
	}

	if err := app.init(ctx, dialect); err != nil {
		app.close(ctx)
		return nil, err
	}

	logger.Debug("application initialized",
		"driver", cfg.Database.Driver,
		"progress_backend", cfg.Progress.Backend)
	return app, nil
}

func (app *application) init(ctx context.Context, dialect sqlstore.Dialect) error {
	cfg := app.config

	m, err := migrations.New(app.db, dialect.Name, app.logger)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if _, err := m.Up(ctx); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	} else if pending, err := m.HasPending(ctx); err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	} else if pending {
		app.logger.Warn("database schema is out of date; run 'scry migrate up'")
	}

	switch cfg.Progress.Backend {
	case "redis":
		progress, err := redis.Connect(ctx, cfg.Progress.RedisURL, app.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.progress = progress
		app.closeProgress = progress.Close
	default:
		app.progress = app.stores.Progress
	}

	app.cardReviewService, err = card_review.NewCardReviewService(
		app.db,
		app.stores.Decks,
		app.stores.Cards,
		app.stores.ReviewLogs,
		app.progress,
		card_review.Settings{
			Scheduler: cfg.Scheduler.Engine(),
			Limits:    cfg.Limits.Engine(),
			Day:       cfg.Review.Day,
		},
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create card review service: %w", err)
	}

	runnerConfig := task.DefaultTaskRunnerConfig()
	runnerConfig.WorkerCount = cfg.Worker.Count
	runnerConfig.QueueSize = cfg.Worker.QueueSize
	app.taskRunner = task.NewTaskRunner(app.stores.Tasks, runnerConfig, app.logger)

	// Registering before Start lets Start recover reschedules left pending
	// by an earlier run.
	rescheduleFactory := task.NewDeckRescheduleTaskFactory(app.cardReviewService, app.logger)
	app.taskRunner.Register(rescheduleFactory)
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.Subscribe(events.DeckSettingsChanged, task.NewRescheduleEventHandler(rescheduleFactory, app.taskRunner, app.logger))

	app.deckService, err = service.NewDeckService(
		app.db,
		app.stores.Decks,
		app.stores.Cards,
		app.eventEmitter,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create deck service: %w", err)
	}
	return nil
}

// close waits for queued tasks to finish and then releases every resource.
func (app *application) close(ctx context.Context) {
	if app.taskRunner != nil {
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		if err := app.taskRunner.Wait(waitCtx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Warn("background tasks still running at exit; they resume on the next run",
				"error", err)
		}
		cancel()
		app.taskRunner.Stop()
	}

	if app.closeProgress != nil {
		if err := app.closeProgress(); err != nil {
			app.logger.Error("error closing progress store", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
