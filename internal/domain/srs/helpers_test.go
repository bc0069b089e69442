package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// fixedConfig returns the default configuration with fuzz disabled.
func fixedConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.EnableFuzz = false
	return cfg
}

func mustScheduler(t *testing.T, cfg SchedulerConfig) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	require.NoError(t, err)
	return s
}

// reviewState builds a Review card last seen elapsed days before now and due at now.
func reviewState(stability, difficulty float64, elapsed int, now time.Time) CardMemoryState {
	last := now.Add(-time.Duration(elapsed) * day)
	due := now
	return CardMemoryState{
		CardID:        uuid.New(),
		State:         Review,
		Stability:     stability,
		Difficulty:    difficulty,
		ScheduledDays: max(elapsed, 1),
		Reps:          5,
		Lapses:        1,
		Due:           &due,
		LastReviewAt:  &last,
	}
}
