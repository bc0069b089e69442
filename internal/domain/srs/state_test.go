package srs

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Rating
		wantErr bool
	}{
		{in: "again", want: Again},
		{in: "Hard", want: Hard},
		{in: " GOOD ", want: Good},
		{in: "4", want: Easy},
		{in: "1", want: Again},
		{in: "0", wantErr: true},
		{in: "5", wantErr: true},
		{in: "meh", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRating(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRating)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRating_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Good)
	require.NoError(t, err)
	assert.JSONEq(t, `"good"`, string(data))

	var r Rating
	require.NoError(t, json.Unmarshal([]byte(`"easy"`), &r))
	assert.Equal(t, Easy, r)
	require.NoError(t, json.Unmarshal([]byte(`2`), &r))
	assert.Equal(t, Hard, r)
	assert.Error(t, json.Unmarshal([]byte(`9`), &r))

	_, err = json.Marshal(Rating(0))
	assert.Error(t, err)
	assert.Equal(t, "Rating(0)", Rating(0).String())
}

func TestState_Text(t *testing.T) {
	t.Parallel()

	for _, s := range []State{New, Learning, Review, Relearning} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		parsed, err := ParseState(string(text))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseState("graduated")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "State(7)", State(7).String())
}

func TestCardMemoryState_JSON(t *testing.T) {
	t.Parallel()

	st := reviewState(12.5, 4.25, 3, baseTime)
	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"review"`)

	var decoded CardMemoryState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, st.CardID, decoded.CardID)
	assert.Equal(t, st.State, decoded.State)
	assert.True(t, st.Due.Equal(*decoded.Due))
	assert.Equal(t, st.Stability, decoded.Stability)
}

func TestCardMemoryState_Validate(t *testing.T) {
	t.Parallel()

	due := baseTime
	tests := []struct {
		name  string
		state CardMemoryState
		ok    bool
	}{
		{name: "new", state: NewCardMemoryState(uuid.New()), ok: true},
		{name: "review", state: reviewState(5, 5, 2, baseTime), ok: true},
		{name: "new with reps", state: CardMemoryState{State: New, Reps: 1}},
		{name: "new with due", state: CardMemoryState{State: New, Due: &due}},
		{name: "review without reps", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Reps = 0; s.Lapses = 0; return s }()},
		{name: "review without timestamps", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.LastReviewAt = nil; return s }()},
		{name: "zero stability", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Stability = 0; return s }()},
		{name: "infinite stability", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Stability = math.Inf(1); return s }()},
		{name: "difficulty out of range", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Difficulty = 0.5; return s }()},
		{name: "lapses exceed reps", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Lapses = 9; return s }()},
		{name: "negative counter", state: func() CardMemoryState { s := reviewState(5, 5, 2, baseTime); s.Step = -1; return s }()},
		{name: "unknown state", state: CardMemoryState{State: State(9)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.state.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var stateErr *InvalidStateError
			require.ErrorAs(t, err, &stateErr)
			assert.NotEmpty(t, stateErr.Reason)
		})
	}
}

func TestCardMemoryState_IsDue(t *testing.T) {
	t.Parallel()

	assert.True(t, NewCardMemoryState(uuid.New()).IsDue(baseTime))
	st := reviewState(5, 5, 2, baseTime)
	assert.True(t, st.IsDue(baseTime))
	assert.False(t, st.IsDue(baseTime.Add(-time.Second)))
}

func TestCardMemoryState_Clone(t *testing.T) {
	t.Parallel()

	st := reviewState(5, 5, 2, baseTime)
	clone := st.Clone()
	*clone.Due = baseTime.Add(time.Hour)
	*clone.LastReviewAt = baseTime.Add(time.Hour)

	assert.Equal(t, baseTime, *st.Due)
	assert.NotEqual(t, baseTime.Add(time.Hour), *st.LastReviewAt)
}
