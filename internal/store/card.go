package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// CardStore defines the interface for card data persistence.
// A card row carries both the card's content and its memory state.
type CardStore interface {
	// CreateMultiple saves multiple cards to the store.
	// It should be run within a transaction so that either all cards are
	// created or none are.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByDeck returns every card in a deck ordered by creation time.
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)

	// UpdateMemory writes card.Memory and card.UpdatedAt, provided the stored
	// row still has expectedReps repetitions. Returns ErrConflict when another
	// writer got there first, and ErrCardNotFound when the card is gone.
	UpdateMemory(ctx context.Context, card *domain.Card, expectedReps int) error

	// Delete removes a card from the store by its ID.
	// Review logs are removed by ON DELETE CASCADE.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a CardStore that runs its queries on tx.
	WithTx(tx *sql.Tx) CardStore
}
