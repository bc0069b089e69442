package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

// ProgressStore implements store.ProgressStore on the daily_progress table.
type ProgressStore struct {
	db      store.DBTX
	dialect Dialect
}

// NewProgressStore creates a ProgressStore.
func NewProgressStore(db store.DBTX, dialect Dialect) *ProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &ProgressStore{db: db, dialect: dialect}
}

var _ store.ProgressStore = (*ProgressStore)(nil)

// Get implements store.ProgressStore.
func (s *ProgressStore) Get(ctx context.Context, deckID uuid.UUID, day time.Time) (srs.DailyProgress, error) {
	query := s.dialect.Rebind(`
		SELECT new_cards_seen, review_cards_seen
		FROM daily_progress
		WHERE deck_id = ? AND day = ?
	`)
	var p srs.DailyProgress
	err := s.db.QueryRowContext(ctx, query, deckID, s.dialect.Date(day)).
		Scan(&p.NewCardsSeen, &p.ReviewCardsSeen)
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrNotFound) {
			return srs.DailyProgress{}, nil
		}
		return srs.DailyProgress{}, store.NewStoreError("progress", "get", "failed to load daily progress", err)
	}
	return p, nil
}

// Add implements store.ProgressStore.
func (s *ProgressStore) Add(ctx context.Context, deckID uuid.UUID, day time.Time, delta srs.DailyProgress) (srs.DailyProgress, error) {
	query := s.dialect.Rebind(`
		INSERT INTO daily_progress (deck_id, day, new_cards_seen, review_cards_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (deck_id, day) DO UPDATE
		SET new_cards_seen = daily_progress.new_cards_seen + excluded.new_cards_seen,
		    review_cards_seen = daily_progress.review_cards_seen + excluded.review_cards_seen
		RETURNING new_cards_seen, review_cards_seen
	`)
	var p srs.DailyProgress
	err := s.db.QueryRowContext(ctx, query,
		deckID,
		s.dialect.Date(day),
		delta.NewCardsSeen,
		delta.ReviewCardsSeen,
	).Scan(&p.NewCardsSeen, &p.ReviewCardsSeen)
	if err != nil {
		return srs.DailyProgress{}, store.NewStoreError("progress", "update", "failed to add daily progress", s.dialect.mapError(err))
	}
	return p, nil
}
