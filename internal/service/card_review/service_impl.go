package card_review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/task"
)

// cardReviewServiceImpl implements the CardReviewService interface
type cardReviewServiceImpl struct {
	db       *sql.DB
	decks    store.DeckStore
	cards    store.CardStore
	logs     store.ReviewLogStore
	progress store.ProgressStore
	settings Settings
	logger   *slog.Logger
}

var (
	_ CardReviewService    = (*cardReviewServiceImpl)(nil)
	_ task.DeckRescheduler = (*cardReviewServiceImpl)(nil)
)

// NewCardReviewService creates a new card review service.
// It returns an error if a required dependency is nil or the settings are invalid.
func NewCardReviewService(
	db *sql.DB,
	decks store.DeckStore,
	cards store.CardStore,
	logs store.ReviewLogStore,
	progress store.ProgressStore,
	settings Settings,
	logger *slog.Logger,
) (CardReviewService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if decks == nil {
		return nil, domain.NewValidationError("decks", "cannot be nil", domain.ErrValidation)
	}
	if cards == nil {
		return nil, domain.NewValidationError("cards", "cannot be nil", domain.ErrValidation)
	}
	if logs == nil {
		return nil, domain.NewValidationError("logs", "cannot be nil", domain.ErrValidation)
	}
	if progress == nil {
		return nil, domain.NewValidationError("progress", "cannot be nil", domain.ErrValidation)
	}
	if err := settings.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Limits.Validate(); err != nil {
		return nil, err
	}
	if settings.Day == nil {
		settings.Day = utcDay
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &cardReviewServiceImpl{
		db:       db,
		decks:    decks,
		cards:    cards,
		logs:     logs,
		progress: progress,
		settings: settings,
		logger:   logger.With(slog.String("component", "card_review_service")),
	}, nil
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// log returns the request logger when one is attached to ctx.
func (s *cardReviewServiceImpl) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l.With(slog.String("component", "card_review_service"))
	}
	return s.logger
}

// resolve returns the deck's effective scheduler configuration and limits.
func (s *cardReviewServiceImpl) resolve(deck *domain.Deck) (srs.SchedulerConfig, srs.DailyLimits) {
	return deck.Settings.Resolve(s.settings.Scheduler, s.settings.Limits)
}

// GetNextCard implements CardReviewService.
func (s *cardReviewServiceImpl) GetNextCard(ctx context.Context, deckID uuid.UUID, now time.Time) (*NextCard, error) {
	const op = "get_next_card"
	log := s.log(ctx).With(slog.String("deck_id", deckID.String()))

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, s.translate(op, "failed to load deck", err)
	}
	cfg, limits := s.resolve(deck)

	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, s.translate(op, "failed to load cards", err)
	}
	progress, err := s.progress.Get(ctx, deckID, s.settings.Day(now))
	if err != nil {
		return nil, s.translate(op, "failed to load daily progress", err)
	}

	pool := make([]srs.CardMemoryState, len(cards))
	byID := make(map[uuid.UUID]*domain.Card, len(cards))
	for i, c := range cards {
		pool[i] = c.Memory
		byID[c.ID] = c
	}

	selection, err := srs.SelectNextCard(pool, progress, limits, now)
	if err != nil {
		return nil, s.translate(op, "failed to select card", err)
	}

	next := &NextCard{
		Status:   selection.Status,
		Progress: progress,
		Limits:   limits,
		Counts:   srs.QueueCounts(pool, now),
	}
	if selection.Status != srs.Selected {
		log.Debug("no card to serve", slog.String("status", selection.Status.String()))
		return next, nil
	}

	card := byID[selection.Card.CardID]
	preview, err := srs.PreviewOutcomes(card.Memory, cfg, now)
	if err != nil {
		return nil, s.translate(op, "failed to preview card", err)
	}
	next.Card = card
	next.Preview = &preview

	log.Debug("selected card",
		slog.String("card_id", card.ID.String()),
		slog.String("state", card.Memory.State.String()))
	return next, nil
}

// SubmitAnswer implements CardReviewService.
func (s *cardReviewServiceImpl) SubmitAnswer(ctx context.Context, cardID uuid.UUID, rating srs.Rating, now time.Time) (*AnswerResult, error) {
	const op = "submit_answer"
	log := s.log(ctx).With(slog.String("card_id", cardID.String()))

	if !rating.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	now = now.UTC()

	var (
		card     *domain.Card
		entry    *domain.ReviewLog
		priorNew bool
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		var err error
		card, err = cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		deck, err := s.decks.WithTx(tx).GetByID(ctx, card.DeckID)
		if err != nil {
			return err
		}
		cfg, _ := s.resolve(deck)

		prior := card.Memory
		next, err := srs.ScheduleReview(prior, srs.ReviewEvent{Rating: rating, ReviewedAt: now}, cfg)
		if err != nil {
			return err
		}
		if err := card.ApplyMemory(next, now); err != nil {
			return err
		}
		if err := cards.UpdateMemory(ctx, card, prior.Reps); err != nil {
			return err
		}

		entry, err = domain.NewReviewLog(prior, next, rating, now)
		if err != nil {
			return err
		}
		if err := s.logs.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}

		priorNew = prior.State == srs.New
		return nil
	})
	if err != nil {
		return nil, s.translate(op, "failed to commit answer", err)
	}

	delta := srs.DailyProgress{ReviewCardsSeen: 1}
	if priorNew {
		delta = srs.DailyProgress{NewCardsSeen: 1}
	}
	result := &AnswerResult{Card: card, Log: entry}
	if progress, err := s.progress.Add(ctx, card.DeckID, s.settings.Day(now), delta); err != nil {
		// The answer is committed; only the counter is behind.
		log.Error("failed to record daily progress",
			slog.String("deck_id", card.DeckID.String()),
			slog.String("error", err.Error()))
	} else {
		result.Progress = &progress
	}

	log.Info("answer recorded",
		slog.String("rating", rating.String()),
		slog.String("state", card.Memory.State.String()),
		slog.Time("due", *card.Memory.Due))

	return result, nil
}

// PostponeCard implements CardReviewService.
func (s *cardReviewServiceImpl) PostponeCard(ctx context.Context, cardID uuid.UUID, days int, now time.Time) (*domain.Card, error) {
	const op = "postpone_card"
	if days < 1 {
		return nil, ErrInvalidPostpone
	}
	now = now.UTC()

	var card *domain.Card
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		var err error
		card, err = cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if card.Memory.State == srs.New {
			return ErrCardNotReviewed
		}
		deck, err := s.decks.WithTx(tx).GetByID(ctx, card.DeckID)
		if err != nil {
			return err
		}
		cfg, _ := s.resolve(deck)

		scheduler, err := srs.NewScheduler(cfg)
		if err != nil {
			return err
		}
		prior := card.Memory
		next, err := scheduler.Postpone(prior, days, now)
		if err != nil {
			return err
		}
		if err := card.ApplyMemory(next, now); err != nil {
			return err
		}
		return cards.UpdateMemory(ctx, card, prior.Reps)
	})
	if err != nil {
		return nil, s.translate(op, "failed to postpone card", err)
	}

	s.log(ctx).Info("postponed card",
		slog.String("card_id", cardID.String()),
		slog.Int("days", days),
		slog.Time("due", *card.Memory.Due))
	return card, nil
}

// Preview implements CardReviewService.
func (s *cardReviewServiceImpl) Preview(ctx context.Context, cardID uuid.UUID, now time.Time) (*CardPreview, error) {
	const op = "preview"

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, s.translate(op, "failed to load card", err)
	}
	deck, err := s.decks.GetByID(ctx, card.DeckID)
	if err != nil {
		return nil, s.translate(op, "failed to load deck", err)
	}
	cfg, _ := s.resolve(deck)

	scheduler, err := srs.NewScheduler(cfg)
	if err != nil {
		return nil, s.translate(op, "invalid deck configuration", err)
	}
	outcome, err := scheduler.PreviewOutcomes(card.Memory, now)
	if err != nil {
		return nil, s.translate(op, "failed to preview card", err)
	}

	return &CardPreview{
		Card:           card,
		Outcome:        outcome,
		Retrievability: scheduler.Retrievability(card.Memory, now),
	}, nil
}

// QueueStatus implements CardReviewService.
func (s *cardReviewServiceImpl) QueueStatus(ctx context.Context, deckID uuid.UUID, now time.Time) (*QueueStatus, error) {
	const op = "queue_status"

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, s.translate(op, "failed to load deck", err)
	}
	_, limits := s.resolve(deck)

	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, s.translate(op, "failed to load cards", err)
	}
	progress, err := s.progress.Get(ctx, deckID, s.settings.Day(now))
	if err != nil {
		return nil, s.translate(op, "failed to load daily progress", err)
	}

	pool := make([]srs.CardMemoryState, len(cards))
	for i, c := range cards {
		pool[i] = c.Memory
	}

	return &QueueStatus{
		Deck:     deck,
		Counts:   srs.QueueCounts(pool, now),
		Progress: progress,
		Limits:   limits,
	}, nil
}

// RescheduleDeck implements CardReviewService and task.DeckRescheduler.
func (s *cardReviewServiceImpl) RescheduleDeck(ctx context.Context, deckID uuid.UUID) (task.RescheduleResult, error) {
	const op = "reschedule_deck"
	log := s.log(ctx).With(slog.String("deck_id", deckID.String()))
	var result task.RescheduleResult

	deck, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return result, s.translate(op, "failed to load deck", err)
	}
	cfg, _ := s.resolve(deck)
	scheduler, err := srs.NewScheduler(cfg)
	if err != nil {
		return result, s.translate(op, "invalid deck configuration", err)
	}

	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return result, s.translate(op, "failed to load cards", err)
	}

	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if card.Memory.State == srs.New {
			result.Skipped++
			continue
		}

		history, err := s.logs.ListByCard(ctx, card.ID)
		if err != nil {
			return result, s.translate(op, "failed to load review history", err)
		}
		if len(history) == 0 {
			result.Skipped++
			continue
		}

		next, err := scheduler.Replay(card.ID, domain.ReviewEvents(history))
		if err != nil {
			return result, s.translate(op, "failed to replay review history", err)
		}

		expected := card.Memory.Reps
		if err := card.ApplyMemory(next, time.Now().UTC()); err != nil {
			return result, s.translate(op, "replayed state rejected", err)
		}
		if err := s.cards.UpdateMemory(ctx, card, expected); err != nil {
			if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
				// Reviewed or deleted meanwhile; a review already used the new settings.
				log.Warn("skipping card changed during reschedule",
					slog.String("card_id", card.ID.String()),
					slog.String("error", err.Error()))
				result.Skipped++
				continue
			}
			return result, s.translate(op, "failed to store rescheduled card", err)
		}
		result.Cards++
	}

	log.Info("rescheduled deck",
		slog.Int("cards", result.Cards),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// translate maps store and engine errors to the service's sentinel errors and
// wraps anything unexpected in a ServiceError.
func (s *cardReviewServiceImpl) translate(op, message string, err error) error {
	switch {
	case errors.Is(err, store.ErrDeckNotFound):
		return ErrDeckNotFound
	case errors.Is(err, store.ErrCardNotFound):
		return ErrCardNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConcurrentReview
	case errors.Is(err, ErrCardNotReviewed), errors.Is(err, ErrInvalidPostpone):
		return err
	case errors.Is(err, srs.ErrInvalidRating):
		return fmt.Errorf("%w: %v", ErrInvalidRating, err)
	}
	s.logger.Error("card review operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return NewServiceError(op, message, err)
}
