package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// ReviewLog records one committed review. The log of a card is enough to
// rebuild its memory state under any scheduler configuration.
type ReviewLog struct {
	ID            uuid.UUID  `json:"id"`
	CardID        uuid.UUID  `json:"card_id"`
	Rating        srs.Rating `json:"rating"`
	ReviewedAt    time.Time  `json:"reviewed_at"`
	PriorState    srs.State  `json:"prior_state"`
	State         srs.State  `json:"state"`
	ScheduledDays int        `json:"scheduled_days"`
	ElapsedDays   int        `json:"elapsed_days"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
}

// NewReviewLog builds the log entry for the transition from prior to next.
func NewReviewLog(prior, next srs.CardMemoryState, rating srs.Rating, reviewedAt time.Time) (*ReviewLog, error) {
	if !rating.IsValid() {
		return nil, NewValidationError("rating", rating.String()+" is not a valid rating", ErrInvalidRating)
	}
	if next.CardID == uuid.Nil || prior.CardID != next.CardID {
		return nil, NewValidationError("card_id", "prior and next states must belong to the same card", ErrInvalidID)
	}
	return &ReviewLog{
		ID:            uuid.New(),
		CardID:        next.CardID,
		Rating:        rating,
		ReviewedAt:    reviewedAt.UTC(),
		PriorState:    prior.State,
		State:         next.State,
		ScheduledDays: next.ScheduledDays,
		ElapsedDays:   next.ElapsedDays,
		Stability:     next.Stability,
		Difficulty:    next.Difficulty,
	}, nil
}

// Event returns the review as scheduler input.
func (l ReviewLog) Event() srs.ReviewEvent {
	return srs.ReviewEvent{Rating: l.Rating, ReviewedAt: l.ReviewedAt}
}

// ReviewEvents converts a card's logs to scheduler input, keeping their order.
func ReviewEvents(logs []ReviewLog) []srs.ReviewEvent {
	events := make([]srs.ReviewEvent, len(logs))
	for i, l := range logs {
		events[i] = l.Event()
	}
	return events
}
