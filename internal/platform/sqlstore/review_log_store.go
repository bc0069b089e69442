package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const reviewLogColumns = `id, card_id, rating, reviewed_at, prior_state, state, scheduled_days, elapsed_days, stability, difficulty`

// ReviewLogStore implements store.ReviewLogStore.
type ReviewLogStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewReviewLogStore creates a ReviewLogStore. If logger is nil, the default logger is used.
func NewReviewLogStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *ReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewLogStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// Append implements store.ReviewLogStore.
func (s *ReviewLogStore) Append(ctx context.Context, log *domain.ReviewLog) error {
	if log.ID == uuid.Nil || log.CardID == uuid.Nil || !log.Rating.IsValid() {
		return fmt.Errorf("%w: incomplete review log", store.ErrInvalidEntity)
	}

	query := s.dialect.Rebind(`
		INSERT INTO review_logs (` + reviewLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.CardID,
		int(log.Rating),
		s.dialect.Time(log.ReviewedAt),
		int(log.PriorState),
		int(log.State),
		log.ScheduledDays,
		log.ElapsedDays,
		log.Stability,
		log.Difficulty,
	)
	if err != nil {
		return store.NewStoreError("review_log", "create", "failed to insert review log", s.dialect.mapError(err))
	}
	return nil
}

// ListByCard implements store.ReviewLogStore.
func (s *ReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewLog, error) {
	query := s.dialect.Rebind(`
		SELECT ` + reviewLogColumns + `
		FROM review_logs
		WHERE card_id = ?
		ORDER BY reviewed_at, id
	`)
	rows, err := s.db.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list", "failed to query review logs", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l                    domain.ReviewLog
			rating, prior, state int
			reviewedAt           timestamp
		)
		if err := rows.Scan(
			&l.ID,
			&l.CardID,
			&rating,
			&reviewedAt,
			&prior,
			&state,
			&l.ScheduledDays,
			&l.ElapsedDays,
			&l.Stability,
			&l.Difficulty,
		); err != nil {
			return nil, store.NewStoreError("review_log", "list", "failed to scan review log", err)
		}
		l.Rating = srs.Rating(rating)
		l.PriorState = srs.State(prior)
		l.State = srs.State(state)
		l.ReviewedAt = reviewedAt.Time
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list", "error iterating review log rows", err)
	}
	return logs, nil
}

// WithTx implements store.ReviewLogStore.
func (s *ReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &ReviewLogStore{db: tx, dialect: s.dialect, logger: s.logger}
}
