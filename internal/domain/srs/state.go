package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage of a card.
type State int

// Possible card states.
const (
	New        State = iota // Never reviewed
	Learning                // Working through the learning step table
	Review                  // Long-term review scheduling
	Relearning              // Forgotten during review, working through relearning steps
)

var stateNames = [...]string{New: "new", Learning: "learning", Review: "review", Relearning: "relearning"}

// Compile-time interface checks.
var (
	_ fmt.Stringer             = State(0)
	_ json.Marshaler           = State(0)
	_ json.Unmarshaler         = (*State)(nil)
	_ encoding.TextMarshaler   = State(0)
	_ encoding.TextUnmarshaler = (*State)(nil)
)

// IsValid reports whether s is one of the four lifecycle states.
func (s State) IsValid() bool {
	return s >= New && s <= Relearning
}

// String returns the lower-case state name, or "State(n)" for invalid values.
func (s State) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState parses a state name case-insensitively.
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s := New; s <= Relearning; s++ {
		if stateNames[s] == name {
			return s, nil
		}
	}
	return 0, invalidState("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, invalidState("unknown state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. States serialize as JSON strings.
func (s State) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return invalidState("state must be a string, got %s", data)
	}
	return s.UnmarshalText([]byte(str))
}

// CardMemoryState is the scheduling state of one flashcard. The engine receives
// it by value and returns a new value; it never keeps a reference.
type CardMemoryState struct {
	CardID        uuid.UUID  `json:"card_id"`
	State         State      `json:"state"`
	Step          int        `json:"step"`           // Index into the learning or relearning steps
	Stability     float64    `json:"stability"`      // Days; 0 until the first review
	Difficulty    float64    `json:"difficulty"`     // [1, 10]; 0 until the first review
	ElapsedDays   int        `json:"elapsed_days"`   // Whole days between the last two reviews
	ScheduledDays int        `json:"scheduled_days"` // Whole days assigned by the last decision
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	Due           *time.Time `json:"due"`            // nil only while New
	LastReviewAt  *time.Time `json:"last_review_at"` // nil only while New
}

// NewCardMemoryState returns the state of a card that has never been reviewed.
func NewCardMemoryState(cardID uuid.UUID) CardMemoryState {
	return CardMemoryState{CardID: cardID, State: New}
}

// Clone returns a deep copy. Pointer fields are copied by value.
func (c CardMemoryState) Clone() CardMemoryState {
	out := c
	if c.Due != nil {
		v := *c.Due
		out.Due = &v
	}
	if c.LastReviewAt != nil {
		v := *c.LastReviewAt
		out.LastReviewAt = &v
	}
	return out
}

// IsDue reports whether the card is eligible for review at now.
// New cards are always eligible; their introduction is governed by daily limits.
func (c CardMemoryState) IsDue(now time.Time) bool {
	if c.State == New {
		return true
	}
	return c.Due != nil && !c.Due.After(now)
}

// Validate checks the internal consistency of the state.
func (c CardMemoryState) Validate() error {
	if !c.State.IsValid() {
		return invalidState("unknown state %d", int(c.State))
	}
	if c.Reps < 0 || c.Lapses < 0 || c.Step < 0 || c.ElapsedDays < 0 || c.ScheduledDays < 0 {
		return invalidState("counters must be non-negative")
	}
	if c.Lapses > c.Reps {
		return invalidState("lapses (%d) exceed reps (%d)", c.Lapses, c.Reps)
	}

	if c.State == New {
		if c.Reps != 0 {
			return invalidState("new card has reps=%d", c.Reps)
		}
		if c.Due != nil || c.LastReviewAt != nil {
			return invalidState("new card has a due or last review timestamp")
		}
		return nil
	}

	if c.Reps == 0 {
		return invalidState("%s card has reps=0", c.State)
	}
	if c.Due == nil || c.LastReviewAt == nil {
		return invalidState("%s card is missing due or last review timestamp", c.State)
	}
	if !validStability(c.Stability) {
		return invalidState("stability must be positive and finite, got %v", c.Stability)
	}
	if c.Difficulty < minDifficulty || c.Difficulty > maxDifficulty {
		return invalidState("difficulty %v outside [%v, %v]", c.Difficulty, minDifficulty, maxDifficulty)
	}
	return nil
}

// ReviewEvent is the input to a scheduling decision.
type ReviewEvent struct {
	Rating     Rating    `json:"rating"`
	ReviewedAt time.Time `json:"reviewed_at"` // zero means now
}

func (e ReviewEvent) at() time.Time {
	if e.ReviewedAt.IsZero() {
		return time.Now().UTC()
	}
	return e.ReviewedAt
}
