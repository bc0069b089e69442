package srs

import "time"

// Outcome is the result a single rating would produce.
type Outcome struct {
	State         State         `json:"state"`
	Due           time.Time     `json:"due"`
	Interval      time.Duration `json:"interval"`       // Due minus the preview time
	ScheduledDays int           `json:"scheduled_days"` // 0 for sub-day learning steps
}

// Preview holds the outcome of every possible rating for one card.
type Preview struct {
	Again Outcome `json:"again"`
	Hard  Outcome `json:"hard"`
	Good  Outcome `json:"good"`
	Easy  Outcome `json:"easy"`
}

// For returns the outcome for r. It returns the zero Outcome for invalid ratings.
func (p Preview) For(r Rating) Outcome {
	switch r {
	case Again:
		return p.Again
	case Hard:
		return p.Hard
	case Good:
		return p.Good
	case Easy:
		return p.Easy
	default:
		return Outcome{}
	}
}

// PreviewOutcomes runs the state transition for every rating against state as
// if it were answered at now. Nothing is committed. Each outcome is exactly what
// ScheduleReview would return for that rating at the same time, fuzz included.
// A zero now means the current time.
func (s *Scheduler) PreviewOutcomes(state CardMemoryState, now time.Time) (Preview, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var outcomes [Easy + 1]Outcome
	for _, r := range Ratings {
		next, err := s.transition(state, r, now)
		if err != nil {
			return Preview{}, err
		}
		outcomes[r] = Outcome{
			State:         next.State,
			Due:           *next.Due,
			Interval:      next.Due.Sub(now),
			ScheduledDays: next.ScheduledDays,
		}
	}
	return Preview{
		Again: outcomes[Again],
		Hard:  outcomes[Hard],
		Good:  outcomes[Good],
		Easy:  outcomes[Easy],
	}, nil
}
