package srs

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectNextCard_EmptyDeck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress DailyProgress
		limits   DailyLimits
	}{
		{name: "unlimited"},
		{name: "zero limits", limits: DailyLimits{NewCardsPerDay: Limit(0), MaxReviewsPerDay: Limit(0)}},
		{name: "progress past limits", progress: DailyProgress{NewCardsSeen: 50, ReviewCardsSeen: 500}, limits: DailyLimits{NewCardsPerDay: Limit(20)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := SelectNextCard(nil, tc.progress, tc.limits, baseTime)
			require.NoError(t, err)
			assert.Equal(t, EmptyDeck, res.Status)
			assert.Nil(t, res.Card)
			assert.Equal(t, tc.progress, res.Progress)
		})
	}
}

func TestSelectNextCard_ReviewsDrainToAllCaughtUp(t *testing.T) {
	t.Parallel()

	s := mustScheduler(t, fixedConfig())
	pool := []CardMemoryState{
		reviewState(10, 5, 10, baseTime.Add(-2*time.Hour)),
		reviewState(4, 6, 4, baseTime.Add(-time.Hour)),
		reviewState(20, 3, 20, baseTime.Add(-3*time.Hour)),
	}
	limits := DailyLimits{NewCardsPerDay: Limit(0)}
	progress := DailyProgress{}
	served := map[uuid.UUID]bool{}
	var lastDue time.Time

	for i := 0; i < len(pool); i++ {
		res, err := SelectNextCard(pool, progress, limits, baseTime)
		require.NoError(t, err)
		require.Equal(t, Selected, res.Status)
		require.NotNil(t, res.Card)
		assert.False(t, served[res.Card.CardID], "card served twice")
		assert.False(t, res.Card.Due.Before(lastDue), "cards served out of due order")
		served[res.Card.CardID] = true
		lastDue = *res.Card.Due
		progress = res.Progress

		next, err := s.ScheduleReview(*res.Card, ReviewEvent{Rating: Good, ReviewedAt: baseTime})
		require.NoError(t, err)
		for j := range pool {
			if pool[j].CardID == next.CardID {
				pool[j] = next
			}
		}
	}

	res, err := SelectNextCard(pool, progress, limits, baseTime)
	require.NoError(t, err)
	assert.Equal(t, AllCaughtUp, res.Status)
	assert.Equal(t, DailyProgress{ReviewCardsSeen: 3}, res.Progress)
}

func TestSelectNextCard_Ordering(t *testing.T) {
	t.Parallel()

	early := reviewState(10, 5, 10, baseTime.Add(-2*time.Hour))
	late := reviewState(10, 5, 10, baseTime.Add(-time.Hour))
	future := reviewState(10, 5, 10, baseTime.Add(time.Hour))
	fresh := NewCardMemoryState(uuid.New())

	t.Run("earliest due first", func(t *testing.T) {
		t.Parallel()
		res, err := SelectNextCard([]CardMemoryState{late, fresh, future, early}, DailyProgress{}, DailyLimits{}, baseTime)
		require.NoError(t, err)
		require.Equal(t, Selected, res.Status)
		assert.Equal(t, early.CardID, res.Card.CardID)
		assert.Equal(t, DailyProgress{ReviewCardsSeen: 1}, res.Progress)
	})

	t.Run("ties broken by card id", func(t *testing.T) {
		t.Parallel()
		a := reviewState(10, 5, 10, baseTime)
		b := a.Clone()
		b.CardID = uuid.New()
		want := a.CardID
		if bytes.Compare(b.CardID[:], a.CardID[:]) < 0 {
			want = b.CardID
		}
		for _, pool := range [][]CardMemoryState{{a, b}, {b, a}} {
			res, err := SelectNextCard(pool, DailyProgress{}, DailyLimits{}, baseTime)
			require.NoError(t, err)
			assert.Equal(t, want, res.Card.CardID)
		}
	})

	t.Run("new cards ordered by id", func(t *testing.T) {
		t.Parallel()
		x := NewCardMemoryState(uuid.MustParse("00000000-0000-0000-0000-000000000002"))
		y := NewCardMemoryState(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
		res, err := SelectNextCard([]CardMemoryState{x, y, future}, DailyProgress{}, DailyLimits{}, baseTime)
		require.NoError(t, err)
		assert.Equal(t, y.CardID, res.Card.CardID)
		assert.Equal(t, DailyProgress{NewCardsSeen: 1}, res.Progress)
	})

	t.Run("new card served when reviews are capped", func(t *testing.T) {
		t.Parallel()
		limits := DailyLimits{MaxReviewsPerDay: Limit(2)}
		res, err := SelectNextCard([]CardMemoryState{early, fresh}, DailyProgress{ReviewCardsSeen: 2}, limits, baseTime)
		require.NoError(t, err)
		require.Equal(t, Selected, res.Status)
		assert.Equal(t, fresh.CardID, res.Card.CardID)
		assert.Equal(t, DailyProgress{NewCardsSeen: 1, ReviewCardsSeen: 2}, res.Progress)
	})
}

func TestSelectNextCard_Limits(t *testing.T) {
	t.Parallel()

	due := reviewState(10, 5, 10, baseTime)
	future := reviewState(10, 5, 10, baseTime.Add(24*time.Hour))
	fresh := NewCardMemoryState(uuid.New())

	tests := []struct {
		name     string
		pool     []CardMemoryState
		progress DailyProgress
		limits   DailyLimits
		want     SelectionStatus
	}{
		{
			name:   "new capped with nothing due",
			pool:   []CardMemoryState{fresh, future},
			limits: DailyLimits{NewCardsPerDay: Limit(0)},
			want:   DailyLimitReached,
		},
		{
			name:     "reviews capped",
			pool:     []CardMemoryState{due},
			progress: DailyProgress{ReviewCardsSeen: 5},
			limits:   DailyLimits{MaxReviewsPerDay: Limit(5)},
			want:     DailyLimitReached,
		},
		{
			name:     "both capped",
			pool:     []CardMemoryState{due, fresh},
			progress: DailyProgress{NewCardsSeen: 1, ReviewCardsSeen: 1},
			limits:   DailyLimits{NewCardsPerDay: Limit(1), MaxReviewsPerDay: Limit(1)},
			want:     DailyLimitReached,
		},
		{
			name: "nothing due",
			pool: []CardMemoryState{future},
			want: AllCaughtUp,
		},
		{
			name:   "under limits",
			pool:   []CardMemoryState{fresh},
			limits: DailyLimits{NewCardsPerDay: Limit(1)},
			want:   Selected,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res, err := SelectNextCard(tc.pool, tc.progress, tc.limits, baseTime)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Status)
			if tc.want != Selected {
				assert.Nil(t, res.Card)
				assert.Equal(t, tc.progress, res.Progress)
			}
		})
	}
}

func TestSelectNextCard_NegativeLimit(t *testing.T) {
	t.Parallel()

	_, err := SelectNextCard(nil, DailyProgress{}, DailyLimits{MaxReviewsPerDay: Limit(-1)}, baseTime)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MaxReviewsPerDay", cfgErr.Field)
}

func TestSelectNextCard_DoesNotMutatePool(t *testing.T) {
	t.Parallel()

	pool := []CardMemoryState{
		reviewState(10, 5, 10, baseTime.Add(-time.Hour)),
		reviewState(10, 5, 10, baseTime.Add(-2*time.Hour)),
	}
	first := pool[0].CardID

	res, err := SelectNextCard(pool, DailyProgress{}, DailyLimits{}, baseTime)
	require.NoError(t, err)
	assert.Equal(t, first, pool[0].CardID)

	*res.Card.Due = baseTime.Add(48 * time.Hour)
	assert.True(t, pool[1].IsDue(baseTime), "selected card must be a copy")
}

func TestQueueCounts(t *testing.T) {
	t.Parallel()

	learning := reviewState(1, 5, 0, baseTime)
	learning.State = Learning
	pool := []CardMemoryState{
		NewCardMemoryState(uuid.New()),
		NewCardMemoryState(uuid.New()),
		learning,
		reviewState(10, 5, 10, baseTime),
		reviewState(10, 5, 10, baseTime.Add(time.Hour)),
	}

	assert.Equal(t, Counts{New: 2, Learning: 1, Review: 1, NotDue: 1, Total: 5}, QueueCounts(pool, baseTime))
	assert.Equal(t, Counts{}, QueueCounts(nil, baseTime))
}

func TestSelectionStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "all_caught_up", AllCaughtUp.String())
	assert.Equal(t, "SelectionStatus(9)", SelectionStatus(9).String())
}
