package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/platform/migrations"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlstore"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// deckEnv is a DeckService backed by a migrated in-memory SQLite database.
type deckEnv struct {
	svc    DeckService
	stores *sqlstore.Stores
	events []*events.Event
}

func newDeckEnv(t *testing.T) *deckEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := migrations.New(db, sqlite.Dialect.Name, discardLogger())
	require.NoError(t, err)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	env := &deckEnv{stores: sqlstore.New(db, sqlite.Dialect, discardLogger())}

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.Event) error {
		env.events = append(env.events, e)
		return nil
	}))

	env.svc, err = NewDeckService(db, env.stores.Decks, env.stores.Cards, emitter, discardLogger())
	require.NoError(t, err)
	return env
}

func intPtr(n int) *int { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestNewDeckService(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	decks, cards, emitter := &MockDeckStore{}, &MockCardStore{}, &MockEventEmitter{}

	tests := []struct {
		name    string
		db      *sql.DB
		decks   store.DeckStore
		cards   store.CardStore
		emitter events.EventEmitter
		field   string
	}{
		{name: "nil db", decks: decks, cards: cards, emitter: emitter, field: "db"},
		{name: "nil decks", db: db, cards: cards, emitter: emitter, field: "decks"},
		{name: "nil cards", db: db, decks: decks, emitter: emitter, field: "cards"},
		{name: "nil emitter", db: db, decks: decks, cards: cards, field: "emitter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewDeckService(tc.db, tc.decks, tc.cards, tc.emitter, nil)
			require.Error(t, err)
			assert.Nil(t, svc)

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}

	svc, err := NewDeckService(db, decks, cards, emitter, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestDeckService_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newDeckEnv(t)

	deck, err := env.svc.CreateDeck(ctx, "  Spanish  ", domain.DeckSettings{NewCardsPerDay: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "Spanish", deck.Name)

	byID, err := env.svc.GetDeck(ctx, deck.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deck.ID, byID.ID)
	require.NotNil(t, byID.Settings.NewCardsPerDay)
	assert.Equal(t, 5, *byID.Settings.NewCardsPerDay)

	byName, err := env.svc.GetDeck(ctx, "Spanish")
	require.NoError(t, err)
	assert.Equal(t, deck.ID, byName.ID)

	_, err = env.svc.GetDeck(ctx, "German")
	assert.ErrorIs(t, err, ErrDeckNotFound)
	_, err = env.svc.GetDeck(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrDeckNotFound)

	_, err = env.svc.CreateDeck(ctx, "Spanish", domain.DeckSettings{})
	assert.ErrorIs(t, err, ErrDeckNameTaken)

	_, err = env.svc.CreateDeck(ctx, "  ", domain.DeckSettings{})
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = env.svc.CreateDeck(ctx, "French", domain.DeckSettings{RequestRetention: floatPtr(1.5)})
	assert.ErrorAs(t, err, &validationErr)

	_, err = env.svc.CreateDeck(ctx, "Algebra", domain.DeckSettings{})
	require.NoError(t, err)

	decks, err := env.svc.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "Algebra", decks[0].Name)
	assert.Equal(t, "Spanish", decks[1].Name)
}

func TestDeckService_UpdateSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newDeckEnv(t)

	deck, err := env.svc.CreateDeck(ctx, "Kanji", domain.DeckSettings{})
	require.NoError(t, err)

	t.Run("limits only", func(t *testing.T) {
		updated, err := env.svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{NewCardsPerDay: intPtr(domain.Unlimited)})
		require.NoError(t, err)
		require.NotNil(t, updated.Settings.NewCardsPerDay)
		assert.Equal(t, domain.Unlimited, *updated.Settings.NewCardsPerDay)
		assert.Empty(t, env.events, "limit changes do not affect scheduling")
	})

	t.Run("retention", func(t *testing.T) {
		updated, err := env.svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{RequestRetention: floatPtr(0.8)})
		require.NoError(t, err)
		require.NotNil(t, updated.Settings.NewCardsPerDay, "earlier overrides are kept")

		require.Len(t, env.events, 1)
		assert.Equal(t, events.DeckSettingsChanged, env.events[0].Type)
		var payload events.DeckSettingsChangedPayload
		require.NoError(t, env.events[0].UnmarshalPayload(&payload))
		assert.Equal(t, deck.ID, payload.DeckID)

		stored, err := env.svc.GetDeck(ctx, deck.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 0.8, *stored.Settings.RequestRetention)
	})

	t.Run("same retention again", func(t *testing.T) {
		_, err := env.svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{RequestRetention: floatPtr(0.8)})
		require.NoError(t, err)
		assert.Len(t, env.events, 1)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := env.svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{MaximumInterval: intPtr(0)})
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)

		stored, err := env.svc.GetDeck(ctx, deck.ID.String())
		require.NoError(t, err)
		assert.Nil(t, stored.Settings.MaximumInterval)
	})

	t.Run("missing deck", func(t *testing.T) {
		_, err := env.svc.UpdateSettings(ctx, uuid.New(), domain.DeckSettings{})
		assert.ErrorIs(t, err, ErrDeckNotFound)
	})
}

func TestDeckService_UpdateSettingsEmitFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	deck, err := domain.NewDeck("Physics", domain.DeckSettings{})
	require.NoError(t, err)

	decks := &MockDeckStore{}
	decks.On("GetByID", mock.Anything, deck.ID).Return(deck, nil)
	decks.On("Update", mock.Anything, deck).Return(nil)

	emitter := &MockEventEmitter{}
	emitter.On("EmitEvent", mock.Anything, mock.AnythingOfType("*events.Event")).Return(errors.New("queue full"))

	log, buf := logger.GetTestLogger(t)
	svc, err := NewDeckService(db, decks, &MockCardStore{}, emitter, log)
	require.NoError(t, err)

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()

	updated, err := svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{MaximumInterval: intPtr(90)})
	require.NoError(t, err, "a failed emit does not undo the update")
	assert.Equal(t, 90, *updated.Settings.MaximumInterval)

	logger.AssertLogContains(t, buf, "failed to emit settings changed event")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
	emitter.AssertExpectations(t)
	decks.AssertExpectations(t)
}

func TestDeckService_UpdateSettingsRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	deck, err := domain.NewDeck("Physics", domain.DeckSettings{})
	require.NoError(t, err)

	decks := &MockDeckStore{}
	decks.On("GetByID", mock.Anything, deck.ID).Return(deck, nil)
	decks.On("Update", mock.Anything, deck).Return(errors.New("disk full"))

	emitter := &MockEventEmitter{}
	svc, err := NewDeckService(db, decks, &MockCardStore{}, emitter, discardLogger())
	require.NoError(t, err)

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()

	_, err = svc.UpdateSettings(ctx, deck.ID, domain.DeckSettings{MaximumInterval: intPtr(90)})
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "update_settings", serviceErr.Operation)
	assert.Contains(t, err.Error(), "disk full")

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
}

func TestDeckService_Cards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newDeckEnv(t)

	deck, err := env.svc.CreateDeck(ctx, "Capitals", domain.DeckSettings{})
	require.NoError(t, err)

	_, err = env.svc.AddCards(ctx, deck.ID, nil)
	assert.ErrorIs(t, err, ErrNoCards)

	_, err = env.svc.AddCards(ctx, deck.ID, []CardInput{{Front: "France", Back: "Paris"}, {Front: "Peru", Back: " "}})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, domain.ErrCardContentEmpty)

	_, err = env.svc.AddCards(ctx, uuid.New(), []CardInput{{Front: "France", Back: "Paris"}})
	assert.ErrorIs(t, err, ErrDeckNotFound)

	added, err := env.svc.AddCards(ctx, deck.ID, []CardInput{
		{Front: "France", Back: "Paris"},
		{Front: "Peru", Back: "Lima"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)

	cards, err := env.svc.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for _, c := range cards {
		assert.Equal(t, deck.ID, c.DeckID)
		assert.Equal(t, 0, c.Memory.Reps)
	}

	_, err = env.svc.ListCards(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDeckNotFound)

	require.NoError(t, env.svc.DeleteCard(ctx, added[0].ID))
	assert.ErrorIs(t, env.svc.DeleteCard(ctx, added[0].ID), ErrCardNotFound)

	cards, err = env.svc.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	require.NoError(t, env.svc.DeleteDeck(ctx, deck.ID))
	assert.ErrorIs(t, env.svc.DeleteDeck(ctx, deck.ID), ErrDeckNotFound)
	_, err = env.stores.Cards.GetByID(ctx, added[1].ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound, "cards go with their deck")
}

func TestDeckService_StoreFailure(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	decks := &MockDeckStore{}
	decks.On("List", mock.Anything).Return(nil, errors.New("connection reset"))

	log, buf := logger.GetTestLogger(t)
	svc, err := NewDeckService(db, decks, &MockCardStore{}, &MockEventEmitter{}, log)
	require.NoError(t, err)

	_, err = svc.ListDecks(context.Background())
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "deck", serviceErr.Service)
	assert.Equal(t, "list_decks", serviceErr.Operation)
	assert.Equal(t, "deck service list_decks operation failed: connection reset", err.Error())
	logger.AssertLogContains(t, buf, `"operation":"list_decks"`)
}

func TestServiceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewServiceError("deck", "create_deck", cause)
	assert.Equal(t, "deck service create_deck operation failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "deck service create_deck operation failed", NewServiceError("deck", "create_deck", nil).Error())
}
