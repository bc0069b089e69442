// Package storetest holds the behavioral tests every sqlstore backend must
// pass. Backend packages call Run from their own tests with a function that
// returns stores on a freshly migrated database.
package storetest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OpenFunc returns stores on a migrated database. It registers its own cleanup.
type OpenFunc func(t *testing.T) *sqlstore.Stores

// Some backends keep microseconds only.
const precision = time.Microsecond

var baseTime = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// Run executes the suite against the backend opened by open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("Decks", func(t *testing.T) { testDecks(t, open(t)) })
	t.Run("Cards", func(t *testing.T) { testCards(t, open(t)) })
	t.Run("CardConflicts", func(t *testing.T) { testCardConflicts(t, open(t)) })
	t.Run("Cascade", func(t *testing.T) { testCascade(t, open(t)) })
	t.Run("ReviewLogs", func(t *testing.T) { testReviewLogs(t, open(t)) })
	t.Run("Progress", func(t *testing.T) { testProgress(t, open(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, open(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, open(t)) })
}

// uniqueName keeps deck names distinct when backends share a database.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func mustDeck(t *testing.T, s *sqlstore.Stores, settings domain.DeckSettings) *domain.Deck {
	t.Helper()
	deck, err := domain.NewDeck(uniqueName("deck"), settings)
	require.NoError(t, err)
	require.NoError(t, s.Decks.Create(context.Background(), deck))
	return deck
}

func mustCards(t *testing.T, s *sqlstore.Stores, deckID uuid.UUID, n int) []*domain.Card {
	t.Helper()
	cards := make([]*domain.Card, 0, n)
	for i := range n {
		card, err := domain.NewCard(deckID, fmt.Sprintf("front %d", i), fmt.Sprintf("back %d", i))
		require.NoError(t, err)
		card.CreatedAt = baseTime.Add(time.Duration(i) * time.Second)
		card.UpdatedAt = card.CreatedAt
		cards = append(cards, card)
	}
	require.NoError(t, s.Cards.CreateMultiple(context.Background(), cards))
	return cards
}

func testDecks(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()

	deck := mustDeck(t, s, domain.DeckSettings{
		NewCardsPerDay:   srs.Limit(5),
		RequestRetention: ptr(0.85),
	})

	got, err := s.Decks.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, deck.Name, got.Name)
	assert.Equal(t, deck.Settings, got.Settings)
	assert.Nil(t, got.Settings.MaxReviewsPerDay)
	assert.WithinDuration(t, deck.CreatedAt, got.CreatedAt, precision)

	byName, err := s.Decks.GetByName(ctx, deck.Name)
	require.NoError(t, err)
	assert.Equal(t, deck.ID, byName.ID)

	_, err = s.Decks.GetByName(ctx, uniqueName("missing"))
	assert.ErrorIs(t, err, store.ErrDeckNotFound)
	_, err = s.Decks.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	dup, err := domain.NewDeck(deck.Name, domain.DeckSettings{})
	require.NoError(t, err)
	err = s.Decks.Create(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDeckNameExists)
	assert.True(t, store.IsDuplicateError(err))

	require.NoError(t, deck.UpdateSettings(domain.DeckSettings{MaxReviewsPerDay: srs.Limit(50)}, baseTime))
	require.NoError(t, s.Decks.Update(ctx, deck))
	got, err = s.Decks.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Settings.MaxReviewsPerDay)
	assert.Equal(t, 50, *got.Settings.MaxReviewsPerDay)
	assert.Equal(t, 5, *got.Settings.NewCardsPerDay)
	assert.True(t, got.UpdatedAt.Equal(baseTime))

	decks, err := s.Decks.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, deckIDs(decks), deck.ID)

	require.NoError(t, s.Decks.Delete(ctx, deck.ID))
	assert.ErrorIs(t, s.Decks.Delete(ctx, deck.ID), store.ErrDeckNotFound)
	missing := &domain.Deck{ID: uuid.New(), Name: uniqueName("ghost")}
	assert.ErrorIs(t, s.Decks.Update(ctx, missing), store.ErrDeckNotFound)
}

func testCards(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})
	cards := mustCards(t, s, deck.ID, 3)

	listed, err := s.Cards.ListByDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, card := range listed {
		assert.Equal(t, cards[i].ID, card.ID, "cards are listed in creation order")
		assert.Equal(t, srs.New, card.Memory.State)
		assert.Nil(t, card.Memory.Due)
		assert.Equal(t, card.ID, card.Memory.CardID)
	}

	scheduler, err := srs.NewScheduler(srs.DefaultSchedulerConfig())
	require.NoError(t, err)

	card := cards[0]
	reviewedAt := baseTime.Add(time.Hour)
	next, err := scheduler.ScheduleReview(card.Memory, srs.ReviewEvent{Rating: srs.Good, ReviewedAt: reviewedAt})
	require.NoError(t, err)
	require.NoError(t, card.ApplyMemory(next, reviewedAt))
	require.NoError(t, s.Cards.UpdateMemory(ctx, card, 0))

	got, err := s.Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, next.State, got.Memory.State)
	assert.Equal(t, next.Step, got.Memory.Step)
	assert.InDelta(t, next.Stability, got.Memory.Stability, 1e-9)
	assert.InDelta(t, next.Difficulty, got.Memory.Difficulty, 1e-9)
	assert.Equal(t, next.Reps, got.Memory.Reps)
	require.NotNil(t, got.Memory.Due)
	assert.True(t, next.Due.Equal(*got.Memory.Due))
	require.NotNil(t, got.Memory.LastReviewAt)
	assert.True(t, reviewedAt.Equal(*got.Memory.LastReviewAt))
	assert.NoError(t, got.Validate())

	_, err = s.Cards.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	require.NoError(t, s.Cards.Delete(ctx, cards[2].ID))
	assert.ErrorIs(t, s.Cards.Delete(ctx, cards[2].ID), store.ErrCardNotFound)
	listed, err = s.Cards.ListByDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	orphan, err := domain.NewCard(uuid.New(), "front", "back")
	require.NoError(t, err)
	err = s.Cards.CreateMultiple(ctx, []*domain.Card{orphan})
	assert.ErrorIs(t, err, store.ErrInvalidEntity, "a card needs an existing deck")
}

func testCardConflicts(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})
	card := mustCards(t, s, deck.ID, 1)[0]

	scheduler, err := srs.NewScheduler(srs.DefaultSchedulerConfig())
	require.NoError(t, err)
	next, err := scheduler.ScheduleReview(card.Memory, srs.ReviewEvent{Rating: srs.Easy, ReviewedAt: baseTime})
	require.NoError(t, err)
	require.NoError(t, card.ApplyMemory(next, baseTime))

	err = s.Cards.UpdateMemory(ctx, card, 3)
	assert.ErrorIs(t, err, store.ErrConflict, "stale repetition count")

	require.NoError(t, s.Cards.UpdateMemory(ctx, card, 0))
	err = s.Cards.UpdateMemory(ctx, card, 0)
	assert.ErrorIs(t, err, store.ErrConflict, "second writer with the same snapshot loses")

	require.NoError(t, s.Cards.Delete(ctx, card.ID))
	err = s.Cards.UpdateMemory(ctx, card, 1)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
}

func testCascade(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})
	card := mustCards(t, s, deck.ID, 1)[0]
	day := baseTime

	next, err := srs.ScheduleReview(card.Memory, srs.ReviewEvent{Rating: srs.Good, ReviewedAt: baseTime}, srs.DefaultSchedulerConfig())
	require.NoError(t, err)
	log, err := domain.NewReviewLog(card.Memory, next, srs.Good, baseTime)
	require.NoError(t, err)
	require.NoError(t, s.ReviewLogs.Append(ctx, log))
	_, err = s.Progress.Add(ctx, deck.ID, day, srs.DailyProgress{NewCardsSeen: 1})
	require.NoError(t, err)

	require.NoError(t, s.Decks.Delete(ctx, deck.ID))

	_, err = s.Cards.GetByID(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
	logs, err := s.ReviewLogs.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	progress, err := s.Progress.Get(ctx, deck.ID, day)
	require.NoError(t, err)
	assert.Zero(t, progress)
}

func testReviewLogs(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})
	card := mustCards(t, s, deck.ID, 1)[0]

	scheduler, err := srs.NewScheduler(srs.DefaultSchedulerConfig())
	require.NoError(t, err)

	ratings := []srs.Rating{srs.Good, srs.Good, srs.Again, srs.Good}
	state := card.Memory
	at := baseTime
	var appended []*domain.ReviewLog
	for _, rating := range ratings {
		next, err := scheduler.ScheduleReview(state, srs.ReviewEvent{Rating: rating, ReviewedAt: at})
		require.NoError(t, err)
		log, err := domain.NewReviewLog(state, next, rating, at)
		require.NoError(t, err)
		appended = append(appended, log)
		state = next
		at = *next.Due
	}
	// Append out of order; listing sorts by review time.
	for i := len(appended) - 1; i >= 0; i-- {
		require.NoError(t, s.ReviewLogs.Append(ctx, appended[i]))
	}

	logs, err := s.ReviewLogs.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, logs, len(ratings))
	for i, log := range logs {
		assert.Equal(t, appended[i].ID, log.ID)
		assert.Equal(t, ratings[i], log.Rating)
		assert.Equal(t, appended[i].PriorState, log.PriorState)
		assert.Equal(t, appended[i].State, log.State)
		assert.True(t, appended[i].ReviewedAt.Equal(log.ReviewedAt))
	}

	replayed, err := scheduler.Replay(card.ID, domain.ReviewEvents(logs))
	require.NoError(t, err)
	assert.Equal(t, state.State, replayed.State)
	assert.Equal(t, state.Reps, replayed.Reps)
	assert.Equal(t, state.Lapses, replayed.Lapses)
	assert.InDelta(t, state.Stability, replayed.Stability, 1e-9)
}

func testProgress(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := s.Progress.Get(ctx, deck.ID, day)
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{}, got)

	got, err = s.Progress.Add(ctx, deck.ID, day, srs.DailyProgress{NewCardsSeen: 1})
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 1}, got)

	got, err = s.Progress.Add(ctx, deck.ID, day, srs.DailyProgress{NewCardsSeen: 1, ReviewCardsSeen: 2})
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 2, ReviewCardsSeen: 2}, got)

	got, err = s.Progress.Get(ctx, deck.ID, day)
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 2, ReviewCardsSeen: 2}, got)

	nextDay, err := s.Progress.Get(ctx, deck.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{}, nextDay, "counters reset on a new day")

	_, err = s.Progress.Add(ctx, uuid.New(), day, srs.DailyProgress{NewCardsSeen: 1})
	assert.Error(t, err, "progress needs an existing deck")
}

// storedTask is a minimal task.Task for exercising the task table.
type storedTask struct {
	id      uuid.UUID
	payload []byte
}

func (s storedTask) ID() uuid.UUID { return s.id }
func (s storedTask) Type() string { return "storetest" }
func (s storedTask) Payload() []byte { return s.payload }
func (s storedTask) Status() task.TaskStatus { return task.TaskStatusPending }
func (s storedTask) Execute(ctx context.Context) error { return nil }

func testTasks(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()

	first := storedTask{id: uuid.New(), payload: []byte(`{"deck_id":"a"}`)}
	second := storedTask{id: uuid.New(), payload: []byte(`{"deck_id":"b"}`)}
	require.NoError(t, s.Tasks.SaveTask(ctx, first))
	require.NoError(t, s.Tasks.SaveTask(ctx, second))

	pending, err := s.Tasks.GetPendingTasks(ctx)
	require.NoError(t, err)
	byID := recordsByID(pending)
	require.Contains(t, byID, first.id)
	assert.Equal(t, "storetest", byID[first.id].Type)
	assert.JSONEq(t, string(first.payload), string(byID[first.id].Payload))
	assert.Equal(t, task.TaskStatusPending, byID[first.id].Status)

	require.NoError(t, s.Tasks.UpdateTaskStatus(ctx, first.id, task.TaskStatusProcessing, ""))
	require.NoError(t, s.Tasks.UpdateTaskStatus(ctx, second.id, task.TaskStatusFailed, "boom"))

	processing, err := s.Tasks.GetProcessingTasks(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, recordsByID(processing), first.id)

	stale, err := s.Tasks.GetProcessingTasks(ctx, time.Hour)
	require.NoError(t, err)
	assert.NotContains(t, recordsByID(stale), first.id, "recently updated tasks are not stuck")

	pending, err = s.Tasks.GetPendingTasks(ctx)
	require.NoError(t, err)
	assert.NotContains(t, recordsByID(pending), second.id)

	err = s.Tasks.UpdateTaskStatus(ctx, uuid.New(), task.TaskStatusCompleted, "")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func testTransactions(t *testing.T, s *sqlstore.Stores) {
	ctx := context.Background()
	deck := mustDeck(t, s, domain.DeckSettings{})

	card, err := domain.NewCard(deck.ID, "rolled", "back")
	require.NoError(t, err)
	err = store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.Cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{card}); err != nil {
			return err
		}
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
	_, err = s.Cards.GetByID(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound, "rolled back insert is not visible")

	err = store.RunInTransaction(ctx, s.DB, func(ctx context.Context, tx *sql.Tx) error {
		return s.Cards.WithTx(tx).CreateMultiple(ctx, []*domain.Card{card})
	})
	require.NoError(t, err)
	_, err = s.Cards.GetByID(ctx, card.ID)
	assert.NoError(t, err)
}

var errRollback = errors.New("roll back")

func deckIDs(decks []*domain.Deck) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(decks))
	for _, d := range decks {
		ids = append(ids, d.ID)
	}
	return ids
}

func recordsByID(records []task.Record) map[uuid.UUID]task.Record {
	out := make(map[uuid.UUID]task.Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

func ptr[T any](v T) *T { return &v }
