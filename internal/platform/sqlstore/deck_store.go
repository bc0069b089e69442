package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const deckColumns = `id, name, new_cards_per_day, max_reviews_per_day, request_retention, maximum_interval, created_at, updated_at`

// DeckStore implements store.DeckStore.
type DeckStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewDeckStore creates a DeckStore. If logger is nil, the default logger is used.
func NewDeckStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *DeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "deck_store")),
	}
}

var _ store.DeckStore = (*DeckStore)(nil)

// Create implements store.DeckStore.
func (s *DeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx)

	if err := deck.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := s.dialect.Rebind(`
		INSERT INTO decks (` + deckColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		deck.ID,
		deck.Name,
		deck.Settings.NewCardsPerDay,
		deck.Settings.MaxReviewsPerDay,
		deck.Settings.RequestRetention,
		deck.Settings.MaximumInterval,
		s.dialect.Time(deck.CreatedAt),
		s.dialect.Time(deck.UpdatedAt),
	)
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: %q", store.ErrDeckNameExists, deck.Name)
		}
		log.Error("failed to insert deck", slog.String("deck_id", deck.ID.String()), slog.String("error", err.Error()))
		return store.NewStoreError("deck", "create", "failed to insert deck", err)
	}

	s.logger.Debug("deck created", slog.String("deck_id", deck.ID.String()))
	return nil
}

// GetByID implements store.DeckStore.
func (s *DeckStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	query := s.dialect.Rebind(`SELECT ` + deckColumns + ` FROM decks WHERE id = ?`)
	return s.getOne(ctx, query, id)
}

// GetByName implements store.DeckStore.
func (s *DeckStore) GetByName(ctx context.Context, name string) (*domain.Deck, error) {
	query := s.dialect.Rebind(`SELECT ` + deckColumns + ` FROM decks WHERE name = ?`)
	return s.getOne(ctx, query, name)
}

func (s *DeckStore) getOne(ctx context.Context, query string, arg any) (*domain.Deck, error) {
	deck, err := scanDeck(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrDeckNotFound
		}
		return nil, store.NewStoreError("deck", "get", "failed to load deck", err)
	}
	return deck, nil
}

// List implements store.DeckStore.
func (s *DeckStore) List(ctx context.Context) ([]*domain.Deck, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deckColumns+` FROM decks ORDER BY name`)
	if err != nil {
		return nil, store.NewStoreError("deck", "list", "failed to query decks", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var decks []*domain.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, store.NewStoreError("deck", "list", "failed to scan deck", err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("deck", "list", "error iterating deck rows", err)
	}
	return decks, nil
}

// Update implements store.DeckStore.
func (s *DeckStore) Update(ctx context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := s.dialect.Rebind(`
		UPDATE decks
		SET name = ?, new_cards_per_day = ?, max_reviews_per_day = ?,
		    request_retention = ?, maximum_interval = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := s.db.ExecContext(ctx, query,
		deck.Name,
		deck.Settings.NewCardsPerDay,
		deck.Settings.MaxReviewsPerDay,
		deck.Settings.RequestRetention,
		deck.Settings.MaximumInterval,
		s.dialect.Time(deck.UpdatedAt),
		deck.ID,
	)
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: %q", store.ErrDeckNameExists, deck.Name)
		}
		return store.NewStoreError("deck", "update", "failed to update deck", err)
	}
	return checkRowsAffected(result, store.ErrDeckNotFound)
}

// Delete implements store.DeckStore.
func (s *DeckStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM decks WHERE id = ?`), id)
	if err != nil {
		return store.NewStoreError("deck", "delete", "failed to delete deck", s.dialect.mapError(err))
	}
	return checkRowsAffected(result, store.ErrDeckNotFound)
}

// WithTx implements store.DeckStore.
func (s *DeckStore) WithTx(tx *sql.Tx) store.DeckStore {
	return &DeckStore{db: tx, dialect: s.dialect, logger: s.logger}
}

func scanDeck(row scanner) (*domain.Deck, error) {
	var (
		deck                 domain.Deck
		newCards, reviews    sql.NullInt64
		retention            sql.NullFloat64
		maxInterval          sql.NullInt64
		createdAt, updatedAt timestamp
	)
	if err := row.Scan(
		&deck.ID,
		&deck.Name,
		&newCards,
		&reviews,
		&retention,
		&maxInterval,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	deck.Settings = domain.DeckSettings{
		NewCardsPerDay:   nullInt(newCards),
		MaxReviewsPerDay: nullInt(reviews),
		MaximumInterval:  nullInt(maxInterval),
	}
	if retention.Valid {
		v := retention.Float64
		deck.Settings.RequestRetention = &v
	}
	deck.CreatedAt = createdAt.Time
	deck.UpdatedAt = updatedAt.Time
	return &deck, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
