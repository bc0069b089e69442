package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const deckServiceName = "deck"

// CardInput is the content of a card to add to a deck.
type CardInput struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// DeckService manages decks, their settings and their cards.
type DeckService interface {
	// CreateDeck creates an empty deck. Returns ErrDeckNameTaken if another
	// deck has the same name, or a *domain.ValidationError for bad input.
	CreateDeck(ctx context.Context, name string, settings domain.DeckSettings) (*domain.Deck, error)

	// ListDecks returns every deck ordered by name.
	ListDecks(ctx context.Context) ([]*domain.Deck, error)

	// GetDeck looks a deck up by ID, or by exact name when ref is not a UUID.
	// Returns ErrDeckNotFound when nothing matches.
	GetDeck(ctx context.Context, ref string) (*domain.Deck, error)

	// UpdateSettings merges update into the deck's settings. Fields left nil in
	// update keep their current value. When the retention or maximum interval
	// changes, a DeckSettingsChanged event is emitted after the update commits.
	UpdateSettings(ctx context.Context, deckID uuid.UUID, update domain.DeckSettings) (*domain.Deck, error)

	// DeleteDeck removes a deck together with its cards and history.
	DeleteDeck(ctx context.Context, deckID uuid.UUID) error

	// AddCards adds new, never-reviewed cards to a deck in one transaction.
	AddCards(ctx context.Context, deckID uuid.UUID, inputs []CardInput) ([]*domain.Card, error)

	// ListCards returns the cards of a deck ordered by creation time.
	ListCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)

	// DeleteCard removes a single card and its review history.
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

// deckServiceImpl implements the DeckService interface
type deckServiceImpl struct {
	db      *sql.DB
	decks   store.DeckStore
	cards   store.CardStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewDeckService creates a new DeckService.
// It returns a validation error if any required dependency is nil.
func NewDeckService(
	db *sql.DB,
	decks store.DeckStore,
	cards store.CardStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (DeckService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if decks == nil {
		return nil, domain.NewValidationError("decks", "cannot be nil", domain.ErrValidation)
	}
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &deckServiceImpl{
		db:      db,
		decks:   decks,
		cards:   cards,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "deck_service")),
	}, nil
}

// log returns the request logger when one is attached to ctx.
func (s *deckServiceImpl) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "deck_service"))
	}
	return s.logger
}

// CreateDeck implements DeckService.
func (s *deckServiceImpl) CreateDeck(ctx context.Context, name string, settings domain.DeckSettings) (*domain.Deck, error) {
	log := s.log(ctx)

	deck, err := domain.NewDeck(name, settings)
	if err != nil {
		log.Debug("rejected deck", slog.String("name", name), slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.decks.Create(ctx, deck); err != nil {
		return nil, s.translate("create_deck", err)
	}

	log.Info("created deck",
		slog.String("deck_id", deck.ID.String()),
		slog.String("name", deck.Name))
	return deck, nil
}

// ListDecks implements DeckService.
func (s *deckServiceImpl) ListDecks(ctx context.Context) ([]*domain.Deck, error) {
	decks, err := s.decks.List(ctx)
	if err != nil {
		return nil, s.translate("list_decks", err)
	}
	return decks, nil
}

// GetDeck implements DeckService.
func (s *deckServiceImpl) GetDeck(ctx context.Context, ref string) (*domain.Deck, error) {
	var (
		deck *domain.Deck
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		deck, err = s.decks.GetByID(ctx, id)
	} else {
		deck, err = s.decks.GetByName(ctx, ref)
	}
	if err != nil {
		return nil, s.translate("get_deck", err)
	}
	return deck, nil
}

// UpdateSettings implements DeckService.
func (s *deckServiceImpl) UpdateSettings(ctx context.Context, deckID uuid.UUID, update domain.DeckSettings) (*domain.Deck, error) {
	log := s.log(ctx).With(slog.String("deck_id", deckID.String()))

	var (
		updated *domain.Deck
		changed bool
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		decks := s.decks.WithTx(tx)

		deck, err := decks.GetByID(ctx, deckID)
		if err != nil {
			return err
		}

		before := deck.Settings
		if err := deck.UpdateSettings(update, time.Now().UTC()); err != nil {
			return err
		}
		if err := decks.Update(ctx, deck); err != nil {
			return err
		}

		updated = deck
		changed = before.SchedulingChanged(deck.Settings)
		return nil
	})
	if err != nil {
		return nil, s.translate("update_settings", err)
	}

	log.Info("updated deck settings", slog.Bool("scheduling_changed", changed))

	if changed {
		s.emitSettingsChanged(ctx, log, deckID)
	}
	return updated, nil
}

// emitSettingsChanged announces a committed settings change. The update has
// already succeeded, so failures are only logged.
func (s *deckServiceImpl) emitSettingsChanged(ctx context.Context, log *slog.Logger, deckID uuid.UUID) {
	event, err := events.NewEvent(events.DeckSettingsChanged, events.DeckSettingsChangedPayload{DeckID: deckID})
	if err != nil {
		log.Error("failed to build settings changed event", slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit settings changed event",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

// DeleteDeck implements DeckService.
func (s *deckServiceImpl) DeleteDeck(ctx context.Context, deckID uuid.UUID) error {
	if err := s.decks.Delete(ctx, deckID); err != nil {
		return s.translate("delete_deck", err)
	}
	s.log(ctx).Info("deleted deck", slog.String("deck_id", deckID.String()))
	return nil
}

// AddCards implements DeckService.
func (s *deckServiceImpl) AddCards(ctx context.Context, deckID uuid.UUID, inputs []CardInput) ([]*domain.Card, error) {
	if len(inputs) == 0 {
		return nil, ErrNoCards
	}

	cards := make([]*domain.Card, 0, len(inputs))
	for i, in := range inputs {
		card, err := domain.NewCard(deckID, in.Front, in.Back)
		if err != nil {
			return nil, domain.NewValidationError("cards", "card "+strconv.Itoa(i+1)+" is invalid", err)
		}
		cards = append(cards, card)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := s.decks.WithTx(tx).GetByID(ctx, deckID); err != nil {
			return err
		}
		return s.cards.WithTx(tx).CreateMultiple(ctx, cards)
	})
	if err != nil {
		return nil, s.translate("add_cards", err)
	}

	s.log(ctx).Info("added cards",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// ListCards implements DeckService.
func (s *deckServiceImpl) ListCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	if _, err := s.decks.GetByID(ctx, deckID); err != nil {
		return nil, s.translate("list_cards", err)
	}
	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, s.translate("list_cards", err)
	}
	return cards, nil
}

// DeleteCard implements DeckService.
func (s *deckServiceImpl) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	if err := s.cards.Delete(ctx, cardID); err != nil {
		return s.translate("delete_card", err)
	}
	s.log(ctx).Info("deleted card", slog.String("card_id", cardID.String()))
	return nil
}

// translate maps store and domain errors to the errors callers check for.
// Anything unexpected is wrapped in a ServiceError.
func (s *deckServiceImpl) translate(op string, err error) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, store.ErrDeckNotFound):
		return ErrDeckNotFound
	case errors.Is(err, store.ErrCardNotFound):
		return ErrCardNotFound
	case errors.Is(err, store.ErrDeckNameExists):
		return ErrDeckNameTaken
	case errors.As(err, &validationErr):
		return err
	}
	s.logger.Error("deck service operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return NewServiceError(deckServiceName, op, err)
}
