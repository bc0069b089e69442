package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const cardColumns = `id, deck_id, front, back, state, step, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, due, last_review_at, created_at, updated_at`

// CardStore implements store.CardStore.
type CardStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewCardStore creates a CardStore. If logger is nil, the default logger is used.
func NewCardStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*CardStore)(nil)

// CreateMultiple implements store.CardStore.
// Every card is validated before the first insert.
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx)

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %s: %v", store.ErrInvalidEntity, card.ID, err)
		}
	}

	query := s.dialect.Rebind(`
		INSERT INTO cards (` + cardColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, card := range cards {
		m := card.Memory
		_, err := s.db.ExecContext(ctx, query,
			card.ID,
			card.DeckID,
			card.Front,
			card.Back,
			int(m.State),
			m.Step,
			m.Stability,
			m.Difficulty,
			m.ElapsedDays,
			m.ScheduledDays,
			m.Reps,
			m.Lapses,
			s.dialect.NullTime(m.Due),
			s.dialect.NullTime(m.LastReviewAt),
			s.dialect.Time(card.CreatedAt),
			s.dialect.Time(card.UpdatedAt),
		)
		if err != nil {
			err = s.dialect.mapError(err)
			log.Error("failed to insert card",
				slog.String("card_id", card.ID.String()),
				slog.String("deck_id", card.DeckID.String()),
				slog.String("error", err.Error()))
			return store.NewStoreError("card", "create", "failed to insert card", err)
		}
	}

	s.logger.Debug("cards created", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := s.dialect.Rebind(`SELECT ` + cardColumns + ` FROM cards WHERE id = ?`)
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrCardNotFound
		}
		return nil, store.NewStoreError("card", "get", "failed to load card", err)
	}
	return card, nil
}

// ListByDeck implements store.CardStore.
func (s *CardStore) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	query := s.dialect.Rebind(`SELECT ` + cardColumns + ` FROM cards WHERE deck_id = ? ORDER BY created_at, id`)
	rows, err := s.db.QueryContext(ctx, query, deckID)
	if err != nil {
		return nil, store.NewStoreError("card", "list", "failed to query cards", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list", "failed to scan card", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "error iterating card rows", err)
	}
	return cards, nil
}

// UpdateMemory implements store.CardStore.
func (s *CardStore) UpdateMemory(ctx context.Context, card *domain.Card, expectedReps int) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	m := card.Memory
	query := s.dialect.Rebind(`
		UPDATE cards
		SET state = ?, step = ?, stability = ?, difficulty = ?, elapsed_days = ?,
		    scheduled_days = ?, reps = ?, lapses = ?, due = ?, last_review_at = ?, updated_at = ?
		WHERE id = ? AND reps = ?
	`)
	result, err := s.db.ExecContext(ctx, query,
		int(m.State),
		m.Step,
		m.Stability,
		m.Difficulty,
		m.ElapsedDays,
		m.ScheduledDays,
		m.Reps,
		m.Lapses,
		s.dialect.NullTime(m.Due),
		s.dialect.NullTime(m.LastReviewAt),
		s.dialect.Time(card.UpdatedAt),
		card.ID,
		expectedReps,
	)
	if err != nil {
		return store.NewStoreError("card", "update", "failed to update card memory", s.dialect.mapError(err))
	}

	if err := checkRowsAffected(result, store.ErrConflict); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		// Tell a vanished card apart from a concurrent review.
		if _, getErr := s.GetByID(ctx, card.ID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: card %s no longer has %d reps", store.ErrConflict, card.ID, expectedReps)
	}
	return nil
}

// Delete implements store.CardStore.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM cards WHERE id = ?`), id)
	if err != nil {
		return store.NewStoreError("card", "delete", "failed to delete card", s.dialect.mapError(err))
	}
	return checkRowsAffected(result, store.ErrCardNotFound)
}

// WithTx implements store.CardStore.
func (s *CardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &CardStore{db: tx, dialect: s.dialect, logger: s.logger}
}

func scanCard(row scanner) (*domain.Card, error) {
	var (
		card                 domain.Card
		state                int
		due, lastReview      timestamp
		createdAt, updatedAt timestamp
	)
	m := &card.Memory
	if err := row.Scan(
		&card.ID,
		&card.DeckID,
		&card.Front,
		&card.Back,
		&state,
		&m.Step,
		&m.Stability,
		&m.Difficulty,
		&m.ElapsedDays,
		&m.ScheduledDays,
		&m.Reps,
		&m.Lapses,
		&due,
		&lastReview,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	m.CardID = card.ID
	m.State = srs.State(state)
	m.Due = due.Ptr()
	m.LastReviewAt = lastReview.Ptr()
	card.CreatedAt = createdAt.Time
	card.UpdatedAt = updatedAt.Time
	return &card, nil
}
