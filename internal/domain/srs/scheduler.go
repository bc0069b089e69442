package srs

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Scheduler applies a validated SchedulerConfig to card memory states.
//
// A Scheduler holds no mutable state: every method is a pure function of its
// arguments and the bound configuration, so one Scheduler may be shared by any
// number of goroutines.
type Scheduler struct {
	cfg   SchedulerConfig
	model model
}

// NewScheduler validates cfg and binds it to a new Scheduler.
// The configuration is copied; later changes to cfg's slices have no effect.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	return &Scheduler{cfg: cfg, model: newModel(cfg.Weights)}, nil
}

// Config returns a copy of the bound configuration.
func (s *Scheduler) Config() SchedulerConfig {
	return s.cfg.Clone()
}

// ScheduleReview commits one review and returns the card's next memory state.
//
// The transition is all-or-nothing: on error the returned state is the zero
// value and the input is untouched.
//
// Parameters:
//   - state: The card's current memory state
//   - event: The rating and review time (a zero ReviewedAt means now)
//
// Returns:
//   - The new memory state with Reps incremented and Due set
//   - *InvalidRatingError if the rating is not Again, Hard, Good or Easy
//   - *InvalidStateError if state is internally inconsistent
func (s *Scheduler) ScheduleReview(state CardMemoryState, event ReviewEvent) (CardMemoryState, error) {
	return s.transition(state, event.Rating, event.at())
}

// Retrievability returns the modeled probability of recalling the card at now.
// Cards that have never been reviewed return 0.
func (s *Scheduler) Retrievability(state CardMemoryState, now time.Time) float64 {
	if state.State == New || state.LastReviewAt == nil || !(state.Stability > 0) {
		return 0
	}
	elapsed := now.Sub(*state.LastReviewAt).Hours() / 24
	return s.model.retrievability(max(elapsed, 0), state.Stability)
}

// Replay rebuilds a card's memory state from its review history under the
// bound configuration. Events are applied in chronological order starting from
// a never-reviewed card; events with equal times keep their given order.
func (s *Scheduler) Replay(cardID uuid.UUID, events []ReviewEvent) (CardMemoryState, error) {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b ReviewEvent) int {
		return a.ReviewedAt.Compare(b.ReviewedAt)
	})

	state := NewCardMemoryState(cardID)
	for i, ev := range ordered {
		if ev.ReviewedAt.IsZero() {
			return CardMemoryState{}, invalidState("review %d has no timestamp", i)
		}
		next, err := s.transition(state, ev.Rating, ev.ReviewedAt)
		if err != nil {
			return CardMemoryState{}, err
		}
		state = next
	}
	return state, nil
}

// Postpone pushes a reviewed card's due date forward by days. Memory is left
// unchanged; the next review will see a longer elapsed time.
func (s *Scheduler) Postpone(state CardMemoryState, days int, now time.Time) (CardMemoryState, error) {
	if err := state.Validate(); err != nil {
		return CardMemoryState{}, err
	}
	if state.State == New {
		return CardMemoryState{}, invalidState("cannot postpone a card that has never been reviewed")
	}
	if days < 1 {
		return CardMemoryState{}, invalidState("postpone days must be at least 1, got %d", days)
	}

	next := state.Clone()
	base := *next.Due
	if base.Before(now) {
		base = now
	}
	due := base.AddDate(0, 0, days)
	next.Due = &due
	next.ScheduledDays = min(state.ScheduledDays+days, s.cfg.MaximumInterval)
	return next, nil
}

// ScheduleReview validates cfg and commits one review of state.
// See Scheduler.ScheduleReview.
func ScheduleReview(state CardMemoryState, event ReviewEvent, cfg SchedulerConfig) (CardMemoryState, error) {
	s, err := NewScheduler(cfg)
	if err != nil {
		return CardMemoryState{}, err
	}
	return s.ScheduleReview(state, event)
}

// PreviewOutcomes validates cfg and reports what each rating would do to state
// if answered at now. See Scheduler.PreviewOutcomes.
func PreviewOutcomes(state CardMemoryState, cfg SchedulerConfig, now time.Time) (Preview, error) {
	s, err := NewScheduler(cfg)
	if err != nil {
		return Preview{}, err
	}
	return s.PreviewOutcomes(state, now)
}
