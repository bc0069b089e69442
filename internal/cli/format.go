package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// formatLimit renders a daily limit; nil means unlimited.
func formatLimit(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return strconv.Itoa(*limit)
}

// formatOverride renders a deck override, or "inherit" when unset.
func formatOverride[T any](v *T) string {
	if v == nil {
		return "inherit"
	}
	if n, ok := any(*v).(int); ok && n == domain.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(*v)
}

// formatInterval renders a scheduling interval in the largest sensible unit.
func formatInterval(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < day:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 30*day:
		return fmt.Sprintf("%dd", int((d+day/2)/day))
	case d < 365*day:
		return fmt.Sprintf("%.1fmo", float64(d)/float64(30*day))
	default:
		return fmt.Sprintf("%.1fy", float64(d)/float64(365*day))
	}
}

// formatDue renders a card's due time, or "new" for an unreviewed card.
func formatDue(m srs.CardMemoryState) string {
	if m.Due == nil {
		return "new"
	}
	return m.Due.Local().Format(time.DateTime)
}

// parseID parses a card ID argument.
func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid card id %q", arg)
	}
	return id, nil
}
