package sqlstore

import (
	"database/sql"
	"log/slog"
)

// Stores bundles every SQL-backed store sharing one connection pool.
type Stores struct {
	DB         *sql.DB
	Dialect    Dialect
	Decks      *DeckStore
	Cards      *CardStore
	ReviewLogs *ReviewLogStore
	Progress   *ProgressStore
	Tasks      *TaskStore
}

// New creates all stores on db.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Stores {
	return &Stores{
		DB:         db,
		Dialect:    dialect,
		Decks:      NewDeckStore(db, dialect, logger),
		Cards:      NewCardStore(db, dialect, logger),
		ReviewLogs: NewReviewLogStore(db, dialect, logger),
		Progress:   NewProgressStore(db, dialect),
		Tasks:      NewTaskStore(db, dialect),
	}
}
