// Package card_review provides the service that runs study sessions: it picks
// the next card of a deck, commits answers through the scheduling engine and
// keeps the daily progress counters that enforce the deck's limits.
package card_review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/task"
)

// Common errors returned by the card review service
var (
	// ErrDeckNotFound indicates the deck does not exist
	ErrDeckNotFound = errors.New("deck not found")

	// ErrCardNotFound indicates the card does not exist
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidRating indicates a rating outside again, hard, good and easy
	ErrInvalidRating = errors.New("invalid rating")

	// ErrCardNotReviewed indicates an operation that needs review history was
	// attempted on a card that has never been answered
	ErrCardNotReviewed = errors.New("card has not been reviewed yet")

	// ErrInvalidPostpone indicates a postpone by fewer than one day
	ErrInvalidPostpone = errors.New("postpone days must be at least 1")

	// ErrConcurrentReview indicates the card changed while the answer was being
	// committed; the caller should fetch the card again
	ErrConcurrentReview = errors.New("card was modified by another review")
)

// ServiceError wraps errors from the card review service with additional context
type ServiceError struct {
	Operation string // The operation that failed (e.g., "submit_answer")
	Message   string // A descriptive message about what went wrong
	Err       error  // The underlying error
}

// Error implements the error interface for ServiceError
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card review service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card review service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError for operation
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

// Settings are the global scheduling parameters. Deck overrides are applied
// on top of them for every operation.
type Settings struct {
	Scheduler srs.SchedulerConfig
	Limits    srs.DailyLimits
	// Day maps a time to the review day whose counters it belongs to.
	// When nil, days are calendar dates in UTC.
	Day func(time.Time) time.Time
}

// NextCard is the result of GetNextCard.
type NextCard struct {
	// Status tells whether a card was selected and, if not, why
	Status srs.SelectionStatus `json:"status"`
	// Card is the card to present; set only when Status is srs.Selected
	Card *domain.Card `json:"card,omitempty"`
	// Preview shows the outcome of each rating for Card
	Preview *srs.Preview `json:"preview,omitempty"`
	// Progress is what has been answered today, not counting Card
	Progress srs.DailyProgress `json:"progress"`
	// Limits are the deck's effective daily limits
	Limits srs.DailyLimits `json:"limits"`
	// Counts tallies the deck's cards at the time of the call
	Counts srs.Counts `json:"counts"`
}

// AnswerResult is the result of SubmitAnswer.
type AnswerResult struct {
	// Card holds the card with its new memory state
	Card *domain.Card `json:"card"`
	// Log is the review log appended for the answer
	Log *domain.ReviewLog `json:"log"`
	// Progress is today's progress including this answer. It is nil when the
	// answer was saved but the daily counter could not be updated.
	Progress *srs.DailyProgress `json:"progress,omitempty"`
}

// CardPreview is the result of Preview.
type CardPreview struct {
	Card    *domain.Card `json:"card"`
	Outcome srs.Preview  `json:"outcome"`
	// Retrievability is the modeled recall probability at the preview time
	Retrievability float64 `json:"retrievability"`
}

// QueueStatus summarises a deck's study queue for one day.
type QueueStatus struct {
	Deck     *domain.Deck      `json:"deck"`
	Counts   srs.Counts        `json:"counts"`
	Progress srs.DailyProgress `json:"progress"`
	Limits   srs.DailyLimits   `json:"limits"`
}

// CardReviewService defines the operations of a study session.
//
// The service owns the whole review flow:
//   - Selecting the next card within the deck's daily limits
//   - Committing answers through the scheduling engine
//   - Keeping the per-deck daily counters
//   - Recomputing memory state after the deck's scheduling settings change
type CardReviewService interface {
	// GetNextCard selects the card to present next from the deck.
	//
	// Due cards are served before new cards, each within the deck's daily
	// limit. Nothing is persisted: the daily counters move only when an
	// answer is submitted.
	//
	// Returns:
	//   - The selection with a preview of every rating when a card is selected
	//   - ErrDeckNotFound if the deck does not exist
	//   - *ServiceError for unexpected failures
	GetNextCard(ctx context.Context, deckID uuid.UUID, now time.Time) (*NextCard, error)

	// SubmitAnswer commits a rating for a card reviewed at now.
	//
	// The memory state update and the review log are written in one
	// transaction. The daily counter of the card's deck is then incremented:
	// the new-card counter if the card had never been reviewed, the review
	// counter otherwise.
	//
	// Returns:
	//   - The updated card, its review log and today's progress
	//   - ErrInvalidRating, ErrCardNotFound or ErrConcurrentReview
	//   - *ServiceError for unexpected failures
	SubmitAnswer(ctx context.Context, cardID uuid.UUID, rating srs.Rating, now time.Time) (*AnswerResult, error)

	// PostponeCard moves a reviewed card's due date days forward without
	// touching its memory.
	PostponeCard(ctx context.Context, cardID uuid.UUID, days int, now time.Time) (*domain.Card, error)

	// Preview reports what each rating would do to a card answered at now.
	Preview(ctx context.Context, cardID uuid.UUID, now time.Time) (*CardPreview, error)

	// QueueStatus reports how many cards of the deck are new, learning, due
	// and not yet due, along with today's progress and the effective limits.
	QueueStatus(ctx context.Context, deckID uuid.UUID, now time.Time) (*QueueStatus, error)

	// RescheduleDeck recomputes every reviewed card of the deck by replaying
	// its review history under the deck's current configuration. Cards without
	// history, and cards that change while being recomputed, are skipped.
	RescheduleDeck(ctx context.Context, deckID uuid.UUID) (task.RescheduleResult, error)
}
