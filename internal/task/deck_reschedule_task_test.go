package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckRescheduleTask(t *testing.T) {
	t.Parallel()

	_, err := NewDeckRescheduleTask(uuid.Nil, &fakeRescheduler{}, nil)
	assert.ErrorIs(t, err, ErrEmptyDeckID)

	_, err = NewDeckRescheduleTask(uuid.New(), nil, nil)
	assert.ErrorIs(t, err, ErrNilRescheduler)

	deckID := uuid.New()
	task, err := NewDeckRescheduleTask(deckID, &fakeRescheduler{}, nil)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeDeckReschedule, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())
	assert.Equal(t, deckID, task.DeckID())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, deckID.String(), payload["deck_id"])
}

func TestDeckRescheduleTaskFactory_Restore(t *testing.T) {
	t.Parallel()

	factory := NewDeckRescheduleTaskFactory(&fakeRescheduler{}, nil)
	original, err := factory.CreateTask(uuid.New())
	require.NoError(t, err)

	restored, err := factory.Restore(original.ID(), original.Payload())
	require.NoError(t, err)
	assert.Equal(t, original.ID(), restored.ID())
	assert.Equal(t, original.DeckID(), restored.(*DeckRescheduleTask).DeckID())

	_, err = factory.Restore(uuid.New(), []byte("not json"))
	assert.Error(t, err)
	_, err = factory.Restore(uuid.New(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrEmptyDeckID)
}

// captureSubmitter records submitted tasks without running them.
type captureSubmitter struct {
	tasks []Task
	err   error
}

func (c *captureSubmitter) Submit(_ context.Context, task Task) error {
	c.tasks = append(c.tasks, task)
	return c.err
}

func TestRescheduleEventHandler(t *testing.T) {
	t.Parallel()

	factory := NewDeckRescheduleTaskFactory(&fakeRescheduler{}, discardLogger())
	submitter := &captureSubmitter{}
	handler := NewRescheduleEventHandler(factory, submitter, discardLogger())

	deckID := uuid.New()
	event, err := events.NewEvent(events.DeckSettingsChanged, events.DeckSettingsChangedPayload{DeckID: deckID})
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), event))
	require.Len(t, submitter.tasks, 1)
	assert.Equal(t, deckID, submitter.tasks[0].(*DeckRescheduleTask).DeckID())

	other, err := events.NewEvent("card.created", map[string]string{})
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), other))
	assert.Len(t, submitter.tasks, 1, "unrelated events are ignored")

	bad := &events.Event{Type: events.DeckSettingsChanged, Payload: []byte(`{"deck_id":"nope"}`)}
	assert.Error(t, handler.HandleEvent(context.Background(), bad))
}
