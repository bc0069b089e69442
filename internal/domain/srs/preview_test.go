package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewOutcomes_MatchesCommit(t *testing.T) {
	t.Parallel()

	lapsed := reviewState(4, 6, 5, baseTime)
	lapsed.State = Relearning
	learning := reviewState(1.2, 5, 0, baseTime)
	learning.State = Learning
	learning.Step = 1

	states := map[string]CardMemoryState{
		"new":        NewCardMemoryState(uuid.New()),
		"learning":   learning,
		"review":     reviewState(25, 4.5, 30, baseTime),
		"overdue":    reviewState(8, 8, 45, baseTime),
		"relearning": lapsed,
	}
	configs := map[string]SchedulerConfig{
		"fuzzed": DefaultSchedulerConfig(),
		"fixed":  fixedConfig(),
	}

	for cfgName, cfg := range configs {
		for stateName, st := range states {
			t.Run(cfgName+"/"+stateName, func(t *testing.T) {
				t.Parallel()
				preview, err := PreviewOutcomes(st, cfg, baseTime)
				require.NoError(t, err)

				for _, r := range Ratings {
					committed, err := ScheduleReview(st, ReviewEvent{Rating: r, ReviewedAt: baseTime}, cfg)
					require.NoError(t, err)

					outcome := preview.For(r)
					assert.Equal(t, *committed.Due, outcome.Due, "rating %s", r)
					assert.Equal(t, committed.State, outcome.State, "rating %s", r)
					assert.Equal(t, committed.ScheduledDays, outcome.ScheduledDays, "rating %s", r)
					assert.Equal(t, committed.Due.Sub(baseTime), outcome.Interval, "rating %s", r)
				}
			})
		}
	}
}

func TestPreviewOutcomes_NewCard(t *testing.T) {
	t.Parallel()

	s := mustScheduler(t, fixedConfig())
	preview, err := s.PreviewOutcomes(NewCardMemoryState(uuid.New()), baseTime)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, preview.Again.Interval)
	assert.Equal(t, time.Minute, preview.Good.Interval)
	assert.Equal(t, Learning, preview.Good.State)
	assert.Equal(t, Review, preview.Easy.State)
	assert.Greater(t, preview.Easy.ScheduledDays, 0)
}

func TestPreviewOutcomes_DoesNotMutate(t *testing.T) {
	t.Parallel()

	st := reviewState(10, 5, 10, baseTime)
	snapshot := st.Clone()

	_, err := PreviewOutcomes(st, DefaultSchedulerConfig(), baseTime)
	require.NoError(t, err)
	assert.Equal(t, snapshot, st)
}

func TestPreviewOutcomes_Errors(t *testing.T) {
	t.Parallel()

	bad := DefaultSchedulerConfig()
	bad.Weights = bad.Weights[:20]
	_, err := PreviewOutcomes(NewCardMemoryState(uuid.New()), bad, baseTime)
	assert.ErrorIs(t, err, ErrConfig)

	corrupt := reviewState(10, 5, 1, baseTime)
	corrupt.Due = nil
	_, err = PreviewOutcomes(corrupt, DefaultSchedulerConfig(), baseTime)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPreview_For(t *testing.T) {
	t.Parallel()

	p := Preview{
		Again: Outcome{ScheduledDays: 1},
		Hard:  Outcome{ScheduledDays: 2},
		Good:  Outcome{ScheduledDays: 3},
		Easy:  Outcome{ScheduledDays: 4},
	}
	for _, r := range Ratings {
		assert.Equal(t, int(r), p.For(r).ScheduledDays)
	}
	assert.Equal(t, Outcome{}, p.For(Rating(9)))
}
