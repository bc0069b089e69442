package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-fsrs/internal/events"
)

// Submitter accepts tasks for background execution. TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// RescheduleEventHandler implements events.EventHandler by turning
// deck.settings_changed events into DeckRescheduleTasks.
type RescheduleEventHandler struct {
	factory *DeckRescheduleTaskFactory
	runner  Submitter
	logger  *slog.Logger
}

// NewRescheduleEventHandler creates an event handler that submits a reschedule
// task to runner for every deck whose settings change.
func NewRescheduleEventHandler(
	factory *DeckRescheduleTaskFactory,
	runner Submitter,
	logger *slog.Logger,
) *RescheduleEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RescheduleEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "reschedule_event_handler"),
	}
}

var _ events.EventHandler = (*RescheduleEventHandler)(nil)

// HandleEvent implements events.EventHandler.
func (h *RescheduleEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.DeckSettingsChanged {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.DeckSettingsChangedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(payload.DeckID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"deck_id", payload.DeckID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"deck_id", payload.DeckID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("reschedule task submitted",
		"task_id", task.ID(),
		"deck_id", payload.DeckID,
		"event_id", event.ID)
	return nil
}
