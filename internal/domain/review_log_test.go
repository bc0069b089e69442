package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReviewLog(t *testing.T) {
	t.Parallel()

	prior := srs.NewCardMemoryState(uuid.New())
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	next, err := srs.ScheduleReview(prior, srs.ReviewEvent{Rating: srs.Easy, ReviewedAt: at}, srs.DefaultSchedulerConfig())
	require.NoError(t, err)

	log, err := NewReviewLog(prior, next, srs.Easy, at)
	require.NoError(t, err)
	assert.Equal(t, prior.CardID, log.CardID)
	assert.Equal(t, srs.New, log.PriorState)
	assert.Equal(t, srs.Review, log.State)
	assert.Equal(t, next.ScheduledDays, log.ScheduledDays)
	assert.Equal(t, next.Stability, log.Stability)
	assert.Equal(t, srs.ReviewEvent{Rating: srs.Easy, ReviewedAt: at}, log.Event())

	_, err = NewReviewLog(prior, next, srs.Rating(0), at)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = NewReviewLog(srs.NewCardMemoryState(uuid.New()), next, srs.Good, at)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestReviewEvents(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	logs := []ReviewLog{
		{Rating: srs.Good, ReviewedAt: at},
		{Rating: srs.Again, ReviewedAt: at.Add(time.Hour)},
	}
	events := ReviewEvents(logs)
	require.Len(t, events, 2)
	assert.Equal(t, srs.Again, events[1].Rating)
	assert.Equal(t, at.Add(time.Hour), events[1].ReviewedAt)
	assert.Empty(t, ReviewEvents(nil))
}
