package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// DeckStore defines the interface for deck data persistence.
type DeckStore interface {
	// Create saves a new deck. Returns ErrDeckNameExists if the name is taken.
	Create(ctx context.Context, deck *domain.Deck) error

	// GetByID retrieves a deck by its ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// GetByName retrieves a deck by its exact name.
	// Returns ErrDeckNotFound if no deck has that name.
	GetByName(ctx context.Context, name string) (*domain.Deck, error)

	// List returns all decks ordered by name.
	List(ctx context.Context) ([]*domain.Deck, error)

	// Update writes the deck's name, settings and UpdatedAt.
	Update(ctx context.Context, deck *domain.Deck) error

	// Delete removes a deck along with its cards, logs and progress.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a DeckStore that runs its queries on tx.
	WithTx(tx *sql.Tx) DeckStore
}
