package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilRescheduler = errors.New("rescheduler cannot be nil")
	ErrEmptyDeckID    = errors.New("deck ID cannot be empty")
)

// RescheduleResult summarizes one deck reschedule.
type RescheduleResult struct {
	// Cards is the number of cards whose state was recomputed
	Cards int `json:"cards"`
	// Skipped counts cards without review history and cards changed meanwhile
	Skipped int `json:"skipped"`
}

// DeckRescheduler recomputes the memory state of every card in a deck from
// its review history under the deck's current configuration.
type DeckRescheduler interface {
	RescheduleDeck(ctx context.Context, deckID uuid.UUID) (RescheduleResult, error)
}

// deckReschedulePayload represents the serialized data stored in the task
type deckReschedulePayload struct {
	DeckID uuid.UUID `json:"deck_id"`
}

// DeckRescheduleTask implements the Task interface for rescheduling a deck.
type DeckRescheduleTask struct {
	id          uuid.UUID
	deckID      uuid.UUID
	rescheduler DeckRescheduler
	logger      *slog.Logger
	status      TaskStatus
	result      RescheduleResult
}

// NewDeckRescheduleTask creates a new deck reschedule task with a fresh ID.
func NewDeckRescheduleTask(deckID uuid.UUID, rescheduler DeckRescheduler, logger *slog.Logger) (*DeckRescheduleTask, error) {
	return newDeckRescheduleTask(uuid.New(), deckID, rescheduler, logger)
}

func newDeckRescheduleTask(id, deckID uuid.UUID, rescheduler DeckRescheduler, logger *slog.Logger) (*DeckRescheduleTask, error) {
	if deckID == uuid.Nil {
		return nil, ErrEmptyDeckID
	}
	if rescheduler == nil {
		return nil, ErrNilRescheduler
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckRescheduleTask{
		id:          id,
		deckID:      deckID,
		rescheduler: rescheduler,
		logger:      logger.With("task_id", id, "deck_id", deckID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *DeckRescheduleTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *DeckRescheduleTask) Type() string { return TaskTypeDeckReschedule }

// DeckID returns the deck the task reschedules.
func (t *DeckRescheduleTask) DeckID() uuid.UUID { return t.deckID }

// Payload returns the task data as JSON.
func (t *DeckRescheduleTask) Payload() []byte {
	data, err := json.Marshal(deckReschedulePayload{DeckID: t.deckID})
	if err != nil {
		t.logger.Error("failed to marshal payload", "error", err)
		return []byte("{}")
	}
	return data
}

// Status returns the current task status
func (t *DeckRescheduleTask) Status() TaskStatus { return t.status }

// Result returns the outcome of the last successful Execute.
func (t *DeckRescheduleTask) Result() RescheduleResult { return t.result }

// Execute recomputes the deck's cards.
func (t *DeckRescheduleTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("rescheduling deck")

	result, err := t.rescheduler.RescheduleDeck(ctx, t.deckID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to reschedule deck %s: %w", t.deckID, err)
	}

	t.result = result
	t.status = TaskStatusCompleted
	t.logger.Info("deck rescheduled",
		"cards", result.Cards,
		"skipped", result.Skipped)
	return nil
}

// DeckRescheduleTaskFactory creates DeckRescheduleTask instances
type DeckRescheduleTaskFactory struct {
	rescheduler DeckRescheduler
	logger      *slog.Logger
}

// NewDeckRescheduleTaskFactory creates a new factory for DeckRescheduleTasks
func NewDeckRescheduleTaskFactory(rescheduler DeckRescheduler, logger *slog.Logger) *DeckRescheduleTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckRescheduleTaskFactory{
		rescheduler: rescheduler,
		logger:      logger.With("component", "deck_reschedule_task"),
	}
}

var _ Factory = (*DeckRescheduleTaskFactory)(nil)

// Type implements Factory.
func (f *DeckRescheduleTaskFactory) Type() string { return TaskTypeDeckReschedule }

// CreateTask creates a new DeckRescheduleTask for the specified deck
func (f *DeckRescheduleTaskFactory) CreateTask(deckID uuid.UUID) (*DeckRescheduleTask, error) {
	return NewDeckRescheduleTask(deckID, f.rescheduler, f.logger)
}

// Restore implements Factory.
func (f *DeckRescheduleTaskFactory) Restore(id uuid.UUID, payload []byte) (Task, error) {
	var p deckReschedulePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", TaskTypeDeckReschedule, err)
	}
	return newDeckRescheduleTask(id, p.DeckID, f.rescheduler, f.logger)
}
