package srs

import (
	"bytes"
	"fmt"
	"slices"
	"time"
)

// SelectionStatus describes the result of SelectNextCard.
type SelectionStatus int

// Possible selection statuses.
const (
	// Selected means Card holds the next card to show.
	Selected SelectionStatus = iota
	// EmptyDeck means the pool has no cards at all.
	EmptyDeck
	// AllCaughtUp means the pool has cards but none is eligible now.
	AllCaughtUp
	// DailyLimitReached means eligible cards exist but every one is capped by DailyLimits.
	DailyLimitReached
)

var selectionStatusNames = [...]string{
	Selected:          "selected",
	EmptyDeck:         "empty_deck",
	AllCaughtUp:       "all_caught_up",
	DailyLimitReached: "daily_limit_reached",
}

// String returns the snake_case name of the status.
func (s SelectionStatus) String() string {
	if s >= Selected && s <= DailyLimitReached {
		return selectionStatusNames[s]
	}
	return fmt.Sprintf("SelectionStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s SelectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SelectionResult is returned by SelectNextCard. Card is set only when Status is
// Selected. Progress is the caller's progress, incremented for the served card.
type SelectionResult struct {
	Status   SelectionStatus
	Card     *CardMemoryState
	Progress DailyProgress
}

// SelectNextCard picks the next card to present from pool.
//
// Due Learning, Review and Relearning cards are served before New cards, each
// class only while its daily cap allows. Due cards are ordered by due time and
// then by card id; New cards by card id. Serving a card increments the matching
// counter in the returned progress.
//
// Parameters:
//   - pool: Every card of the deck
//   - progress: Cards already served today
//   - limits: Daily caps; nil fields are unlimited
//   - now: The time used to decide which cards are due
//
// Returns:
//   - The selection result; pool and progress are not modified
//   - *ConfigError if a limit is negative
func SelectNextCard(pool []CardMemoryState, progress DailyProgress, limits DailyLimits, now time.Time) (SelectionResult, error) {
	if err := limits.Validate(); err != nil {
		return SelectionResult{}, err
	}
	if len(pool) == 0 {
		return SelectionResult{Status: EmptyDeck, Progress: progress}, nil
	}

	due, fresh := partitionPool(pool, now)

	if len(due) > 0 && underLimit(progress.ReviewCardsSeen, limits.MaxReviewsPerDay) {
		card := due[0].Clone()
		progress.ReviewCardsSeen++
		return SelectionResult{Status: Selected, Card: &card, Progress: progress}, nil
	}
	if len(fresh) > 0 && underLimit(progress.NewCardsSeen, limits.NewCardsPerDay) {
		card := fresh[0].Clone()
		progress.NewCardsSeen++
		return SelectionResult{Status: Selected, Card: &card, Progress: progress}, nil
	}
	if len(due) > 0 || len(fresh) > 0 {
		return SelectionResult{Status: DailyLimitReached, Progress: progress}, nil
	}
	return SelectionResult{Status: AllCaughtUp, Progress: progress}, nil
}

// partitionPool splits out the due reviewed cards and the New cards, each in
// serving order.
func partitionPool(pool []CardMemoryState, now time.Time) (due, fresh []CardMemoryState) {
	for _, c := range pool {
		switch {
		case c.State == New:
			fresh = append(fresh, c)
		case c.IsDue(now):
			due = append(due, c)
		}
	}
	slices.SortFunc(due, func(a, b CardMemoryState) int {
		if c := a.Due.Compare(*b.Due); c != 0 {
			return c
		}
		return bytes.Compare(a.CardID[:], b.CardID[:])
	})
	slices.SortFunc(fresh, func(a, b CardMemoryState) int {
		return bytes.Compare(a.CardID[:], b.CardID[:])
	})
	return due, fresh
}

func underLimit(seen int, limit *int) bool {
	return limit == nil || seen < *limit
}

// Counts summarises a deck for display.
type Counts struct {
	New      int `json:"new"`      // Never reviewed
	Learning int `json:"learning"` // Learning or Relearning and due now
	Review   int `json:"review"`   // Review and due now
	NotDue   int `json:"not_due"`  // Reviewed but not yet due
	Total    int `json:"total"`
}

// QueueCounts tallies pool by what SelectNextCard could serve at now.
func QueueCounts(pool []CardMemoryState, now time.Time) Counts {
	counts := Counts{Total: len(pool)}
	for _, c := range pool {
		switch {
		case c.State == New:
			counts.New++
		case !c.IsDue(now):
			counts.NotDue++
		case c.State == Review:
			counts.Review++
		default:
			counts.Learning++
		}
	}
	return counts
}
