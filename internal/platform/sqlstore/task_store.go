package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/task"
)

// TaskStore implements task.TaskStore on the tasks table.
type TaskStore struct {
	db      store.DBTX
	dialect Dialect
	now     func() time.Time
}

// NewTaskStore creates a TaskStore.
func NewTaskStore(db store.DBTX, dialect Dialect) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &TaskStore{db: db, dialect: dialect, now: time.Now}
}

var _ task.TaskStore = (*TaskStore)(nil)

// SaveTask persists a task to the database
func (s *TaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx)

	query := s.dialect.Rebind(`
		INSERT INTO tasks (id, type, payload, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
	`)
	now := s.dialect.Time(s.now())
	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		string(task.TaskStatusPending),
		now,
		now,
	)
	if err != nil {
		err = s.dialect.mapError(err)
		log.Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}
	return nil
}

// UpdateTaskStatus updates the status of a task in the database
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	query := s.dialect.Rebind(`
		UPDATE tasks
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := s.db.ExecContext(ctx, query,
		string(status),
		errorMsg,
		s.dialect.Time(s.now()),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", s.dialect.mapError(err))
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *TaskStore) GetPendingTasks(ctx context.Context) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *TaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *TaskStore) getTasksByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Record, error) {
	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status = ?`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < ?`
		args = append(args, s.dialect.Time(s.now().Add(-olderThan)))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by status: %w", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []task.Record
	for rows.Next() {
		var (
			rec                  task.Record
			st                   string
			createdAt, updatedAt timestamp
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Type,
			&rec.Payload,
			&st,
			&rec.ErrorMessage,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		rec.Status = task.TaskStatus(st)
		rec.CreatedAt = createdAt.Time
		rec.UpdatedAt = updatedAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return records, nil
}
