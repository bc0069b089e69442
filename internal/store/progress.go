package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// ProgressStore keeps the per-deck daily counters used to enforce daily limits.
// Days are identified by their calendar date; the time-of-day is ignored.
type ProgressStore interface {
	// Get returns the counters for a deck on a day. A day without
	// activity has zero counters and is not an error.
	Get(ctx context.Context, deckID uuid.UUID, day time.Time) (srs.DailyProgress, error)

	// Add atomically adds delta to the counters and returns the new totals.
	Add(ctx context.Context, deckID uuid.UUID, day time.Time, delta srs.DailyProgress) (srs.DailyProgress, error)
}

// DayKey formats the calendar date of day as used by every ProgressStore.
func DayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}
