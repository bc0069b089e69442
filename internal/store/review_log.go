package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// ReviewLogStore persists the append-only review history of cards.
type ReviewLogStore interface {
	// Append records a single review.
	Append(ctx context.Context, log *domain.ReviewLog) error

	// ListByCard returns a card's reviews in chronological order.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]domain.ReviewLog, error)

	// WithTx returns a ReviewLogStore that runs its queries on tx.
	WithTx(tx *sql.Tx) ReviewLogStore
}
