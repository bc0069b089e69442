package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardContentEmpty is returned when the front or back of a card is empty.
	ErrCardContentEmpty = errors.New("card content cannot be empty")

	// ErrCardMemoryMismatch is returned when a card's memory belongs to another card.
	ErrCardMemoryMismatch = errors.New("card memory state belongs to a different card")
)

// Card is a single question and answer inside a deck, together with its
// scheduling state.
type Card struct {
	ID        uuid.UUID           `json:"id"`
	DeckID    uuid.UUID           `json:"deck_id"`
	Front     string              `json:"front"`
	Back      string              `json:"back"`
	Memory    srs.CardMemoryState `json:"memory"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewCard creates a never-reviewed Card in the given deck.
// It generates a new UUID for the card ID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewCard(deckID uuid.UUID, front, back string) (*Card, error) {
	id := uuid.New()
	now := time.Now().UTC()
	card := &Card{
		ID:        id,
		DeckID:    deckID,
		Front:     strings.TrimSpace(front),
		Back:      strings.TrimSpace(back),
		Memory:    srs.NewCardMemoryState(id),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if c.Front == "" || c.Back == "" {
		return ErrCardContentEmpty
	}

	if c.Memory.CardID != c.ID {
		return ErrCardMemoryMismatch
	}

	return c.Memory.Validate()
}

// ApplyMemory replaces the card's scheduling state with next.
func (c *Card) ApplyMemory(next srs.CardMemoryState, now time.Time) error {
	if next.CardID != c.ID {
		return ErrCardMemoryMismatch
	}
	if err := next.Validate(); err != nil {
		return err
	}
	c.Memory = next
	c.UpdatedAt = now
	return nil
}
