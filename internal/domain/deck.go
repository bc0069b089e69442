package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// Unlimited is stored in a DeckSettings limit to lift the global cap.
const Unlimited = -1

// MaxDeckNameLength bounds deck names.
const MaxDeckNameLength = 200

// DeckSettings overrides the global scheduler configuration for one deck.
// A nil field inherits the global value.
type DeckSettings struct {
	NewCardsPerDay   *int     `json:"new_cards_per_day,omitempty"`
	MaxReviewsPerDay *int     `json:"max_reviews_per_day,omitempty"`
	RequestRetention *float64 `json:"request_retention,omitempty"`
	MaximumInterval  *int     `json:"maximum_interval,omitempty"`
}

// Validate checks the overrides that are set.
func (s DeckSettings) Validate() error {
	if s.NewCardsPerDay != nil && *s.NewCardsPerDay < Unlimited {
		return NewValidationError("new_cards_per_day", "must be -1 (unlimited) or a non-negative number", nil)
	}
	if s.MaxReviewsPerDay != nil && *s.MaxReviewsPerDay < Unlimited {
		return NewValidationError("max_reviews_per_day", "must be -1 (unlimited) or a non-negative number", nil)
	}
	if r := s.RequestRetention; r != nil && !(*r > 0 && *r <= 1) {
		return NewValidationError("request_retention", "must be in (0, 1]", nil)
	}
	if s.MaximumInterval != nil && *s.MaximumInterval < 1 {
		return NewValidationError("maximum_interval", "must be at least 1 day", nil)
	}
	return nil
}

// Merge returns s with every field set in update applied on top.
func (s DeckSettings) Merge(update DeckSettings) DeckSettings {
	out := s
	if update.NewCardsPerDay != nil {
		out.NewCardsPerDay = update.NewCardsPerDay
	}
	if update.MaxReviewsPerDay != nil {
		out.MaxReviewsPerDay = update.MaxReviewsPerDay
	}
	if update.RequestRetention != nil {
		out.RequestRetention = update.RequestRetention
	}
	if update.MaximumInterval != nil {
		out.MaximumInterval = update.MaximumInterval
	}
	return out
}

// Resolve applies the deck's overrides to the global configuration and limits.
// The inputs are not modified.
func (s DeckSettings) Resolve(cfg srs.SchedulerConfig, limits srs.DailyLimits) (srs.SchedulerConfig, srs.DailyLimits) {
	cfg = cfg.Clone()
	if s.RequestRetention != nil {
		cfg.RequestRetention = *s.RequestRetention
	}
	if s.MaximumInterval != nil {
		cfg.MaximumInterval = *s.MaximumInterval
	}
	if s.NewCardsPerDay != nil {
		limits.NewCardsPerDay = limitOrNil(*s.NewCardsPerDay)
	}
	if s.MaxReviewsPerDay != nil {
		limits.MaxReviewsPerDay = limitOrNil(*s.MaxReviewsPerDay)
	}
	return cfg, limits
}

// SchedulingChanged reports whether moving from s to other changes how cards
// are scheduled, as opposed to only how many are served.
func (s DeckSettings) SchedulingChanged(other DeckSettings) bool {
	return !equalPtr(s.RequestRetention, other.RequestRetention) ||
		!equalPtr(s.MaximumInterval, other.MaximumInterval)
}

func limitOrNil(n int) *int {
	if n == Unlimited {
		return nil
	}
	return &n
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Deck is a named collection of cards that share daily limits and scheduling overrides.
type Deck struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Settings  DeckSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewDeck creates a deck with a fresh ID and timestamps.
// Returns an error if validation fails.
func NewDeck(name string, settings DeckSettings) (*Deck, error) {
	now := time.Now().UTC()
	deck := &Deck{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return deck, nil
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if d.Name == "" {
		return NewValidationError("name", "cannot be empty", ErrEmptyContent)
	}
	if len(d.Name) > MaxDeckNameLength {
		return NewValidationError("name", "is too long", nil)
	}
	return d.Settings.Validate()
}

// UpdateSettings merges update into the deck's settings and bumps UpdatedAt.
// The deck is left unchanged if the merged settings are invalid.
func (d *Deck) UpdateSettings(update DeckSettings, now time.Time) error {
	merged := d.Settings.Merge(update)
	if err := merged.Validate(); err != nil {
		return err
	}
	d.Settings = merged
	d.UpdatedAt = now
	return nil
}
