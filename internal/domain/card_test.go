package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel() // Enable parallel execution
	deckID := uuid.New()

	card, err := NewCard(deckID, "  What is Go?  ", "A programming language")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, deckID, card.DeckID)
	assert.Equal(t, "What is Go?", card.Front)
	assert.Equal(t, card.ID, card.Memory.CardID)
	assert.Equal(t, srs.New, card.Memory.State)
	assert.False(t, card.CreatedAt.IsZero())
	assert.Equal(t, card.CreatedAt, card.UpdatedAt)

	_, err = NewCard(uuid.Nil, "front", "back")
	assert.Equal(t, ErrCardDeckIDEmpty, err)

	_, err = NewCard(deckID, "front", "   ")
	assert.Equal(t, ErrCardContentEmpty, err)
}

func TestCard_ApplyMemory(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), "front", "back")
	require.NoError(t, err)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	next, err := srs.ScheduleReview(card.Memory, srs.ReviewEvent{Rating: srs.Good, ReviewedAt: now}, srs.DefaultSchedulerConfig())
	require.NoError(t, err)

	require.NoError(t, card.ApplyMemory(next, now))
	assert.Equal(t, 1, card.Memory.Reps)
	assert.Equal(t, now, card.UpdatedAt)

	other := srs.NewCardMemoryState(uuid.New())
	assert.Equal(t, ErrCardMemoryMismatch, card.ApplyMemory(other, now))

	corrupt := next.Clone()
	corrupt.Reps = 0
	err = card.ApplyMemory(corrupt, now)
	assert.True(t, errors.Is(err, srs.ErrInvalidState))
	assert.Equal(t, 1, card.Memory.Reps, "card unchanged on error")
}

func TestCard_Validate(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), "front", "back")
	require.NoError(t, err)

	broken := *card
	broken.Memory.CardID = uuid.New()
	assert.Equal(t, ErrCardMemoryMismatch, broken.Validate())

	broken = *card
	broken.ID = uuid.Nil
	assert.Equal(t, ErrCardIDEmpty, broken.Validate())
}
