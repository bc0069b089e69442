package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMemory_Initial(t *testing.T) {
	t.Parallel()

	cfg := DefaultSchedulerConfig()
	want := map[Rating]MemoryParams{
		Again: {Stability: 0.212, Difficulty: 6.4133},
		Hard:  {Stability: 1.2931, Difficulty: 5.112170705601055},
		Good:  {Stability: 2.3065, Difficulty: 2.118103970459015},
		Easy:  {Stability: 8.2956, Difficulty: 1},
	}

	for r, w := range want {
		got, err := UpdateMemory(nil, 0, r, cfg)
		require.NoError(t, err)
		assert.InDelta(t, w.Stability, got.Stability, 1e-9, "rating %s", r)
		assert.InDelta(t, w.Difficulty, got.Difficulty, 1e-9, "rating %s", r)
	}
}

func TestUpdateMemory_Recall(t *testing.T) {
	t.Parallel()

	cfg := DefaultSchedulerConfig()
	prior := &MemoryParams{Stability: 10, Difficulty: 5}

	want := map[Rating]float64{
		Hard: 23.246875110466817,
		Good: 32.02672948198673,
		Easy: 51.25386164681294,
	}
	for r, s := range want {
		got, err := UpdateMemory(prior, 10, r, cfg)
		require.NoError(t, err)
		assert.InDelta(t, s, got.Stability, 1e-6, "rating %s", r)
	}

	again, err := UpdateMemory(prior, 10, Again, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1.3919869729546932, again.Stability, 1e-6)
}

func TestUpdateMemory_Difficulty(t *testing.T) {
	t.Parallel()

	cfg := DefaultSchedulerConfig()
	prior := &MemoryParams{Stability: 10, Difficulty: 5}

	var got [Easy + 1]float64
	for _, r := range Ratings {
		m, err := UpdateMemory(prior, 5, r, cfg)
		require.NoError(t, err)
		got[r] = m.Difficulty
	}
	assert.Greater(t, got[Again], got[Hard])
	assert.Greater(t, got[Hard], got[Good])
	assert.Greater(t, got[Good], got[Easy])
	assert.Greater(t, got[Again], 5.0)
	assert.Less(t, got[Easy], 5.0)

	top, err := UpdateMemory(&MemoryParams{Stability: 10, Difficulty: 10}, 5, Again, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, top.Difficulty, 10.0)

	bottom, err := UpdateMemory(&MemoryParams{Stability: 10, Difficulty: 1}, 5, Easy, cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bottom.Difficulty, 1.0)
}

func TestUpdateMemory_SameDayMatchesOneDay(t *testing.T) {
	t.Parallel()

	cfg := DefaultSchedulerConfig()
	prior := &MemoryParams{Stability: 3, Difficulty: 6}

	zero, err := UpdateMemory(prior, 0, Good, cfg)
	require.NoError(t, err)
	one, err := UpdateMemory(prior, 1, Good, cfg)
	require.NoError(t, err)
	assert.Equal(t, one, zero)
}

func TestUpdateMemory_Errors(t *testing.T) {
	t.Parallel()

	cfg := DefaultSchedulerConfig()

	_, err := UpdateMemory(nil, 0, Rating(0), cfg)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = UpdateMemory(&MemoryParams{Stability: 0, Difficulty: 5}, 1, Good, cfg)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = UpdateMemory(&MemoryParams{Stability: 1, Difficulty: 11}, 1, Good, cfg)
	assert.ErrorIs(t, err, ErrInvalidState)

	bad := cfg.Clone()
	bad.Weights = append(bad.Weights, 1)
	_, err = UpdateMemory(nil, 0, Good, bad)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestShortTermStability(t *testing.T) {
	t.Parallel()

	m := newModel(DefaultWeights[:])
	assert.GreaterOrEqual(t, m.shortTermStability(2, Good), 2.0)
	assert.GreaterOrEqual(t, m.shortTermStability(2, Easy), m.shortTermStability(2, Good))
	assert.Less(t, m.shortTermStability(2, Again), 2.0)
	assert.GreaterOrEqual(t, m.shortTermStability(MinStability, Again), MinStability)
}

func TestRetrievabilityAtStability(t *testing.T) {
	t.Parallel()

	m := newModel(DefaultWeights[:])
	assert.InDelta(t, 0.9, m.retrievability(10, 10), 1e-9)
	assert.InDelta(t, 1.0, m.retrievability(0, 10), 1e-9)
	assert.Less(t, m.retrievability(30, 10), 0.9)
}
