package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no task matches the given id.
	ErrNotFound = errors.New("task not found")
	// ErrVersionConflict is returned when a compare-and-swap update loses the
	// race against a concurrent writer. Callers reload and retry.
	ErrVersionConflict = errors.New("task version conflict")
)

// AutomatedTask is a unit of automated work, optionally tied to a lead and
// executed by the external workflow engine. Status is driven exclusively by
// the task scheduler.
type AutomatedTask struct {
	ID                       uuid.UUID
	Name                     string
	Description              string
	Type                     string
	Status                   string
	Priority                 string
	AssignedAgent            string
	TargetLeadID             *uuid.UUID
	ScheduledAt              time.Time
	StartedAt                *time.Time
	CompletedAt              *time.Time
	EstimatedDurationMinutes int
	ActualDurationMinutes    *int
	ErrorMessage             *string
	RetryCount               int
	MaxRetries               int
	NextRetryAt              *time.Time
	WorkflowID               string
	Metadata                 map[string]string
	Version                  int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CreateTaskParams holds the fields for inserting a new automated task.
type CreateTaskParams struct {
	Name                     string
	Description              string
	Type                     string
	Status                   string
	Priority                 string
	AssignedAgent            string
	TargetLeadID             *uuid.UUID
	ScheduledAt              time.Time
	EstimatedDurationMinutes int
	MaxRetries               int
	WorkflowID               string
	Metadata                 map[string]string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `
	id, name, description, type, status, priority, assigned_agent,
	target_lead_id, scheduled_at, started_at, completed_at,
	estimated_duration_minutes, actual_duration_minutes, error_message,
	retry_count, max_retries, next_retry_at, workflow_id, metadata,
	version, created_at, updated_at
`

func scanTask(row pgx.Row) (AutomatedTask, error) {
	var t AutomatedTask
	var metadata []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Type, &t.Status, &t.Priority,
		&t.AssignedAgent, &t.TargetLeadID, &t.ScheduledAt, &t.StartedAt,
		&t.CompletedAt, &t.EstimatedDurationMinutes, &t.ActualDurationMinutes,
		&t.ErrorMessage, &t.RetryCount, &t.MaxRetries, &t.NextRetryAt,
		&t.WorkflowID, &metadata, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}
	t.Metadata = map[string]string{}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &t.Metadata)
	}
	return t, nil
}

func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(metadata)
}

// Create inserts a new automated task and returns the stored record.
func (r *Repository) Create(ctx context.Context, params CreateTaskParams) (AutomatedTask, error) {
	metadata, err := encodeMetadata(params.Metadata)
	if err != nil {
		return AutomatedTask{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO automated_tasks (
			name, description, type, status, priority, assigned_agent,
			target_lead_id, scheduled_at, estimated_duration_minutes,
			max_retries, workflow_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+taskColumns,
		params.Name, params.Description, params.Type, params.Status,
		params.Priority, params.AssignedAgent, params.TargetLeadID,
		params.ScheduledAt, params.EstimatedDurationMinutes,
		params.MaxRetries, params.WorkflowID, metadata,
	)
	return scanTask(row)
}

// GetByID returns the task with the given id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (AutomatedTask, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM automated_tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AutomatedTask{}, ErrNotFound
	}
	return task, err
}

// GetByWorkflowID resolves a task from the opaque reference handed to the
// external workflow engine. Used by the webhook ingress.
func (r *Repository) GetByWorkflowID(ctx context.Context, workflowID string) (AutomatedTask, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM automated_tasks WHERE workflow_id = $1`, workflowID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AutomatedTask{}, ErrNotFound
	}
	return task, err
}

// List returns all tasks, newest first.
func (r *Repository) List(ctx context.Context) ([]AutomatedTask, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM automated_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListFailedDue returns failed tasks whose next retry is due.
func (r *Repository) ListFailedDue(ctx context.Context, now time.Time) ([]AutomatedTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM automated_tasks
		WHERE status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListScheduledDue returns scheduled tasks whose start time has arrived.
func (r *Repository) ListScheduledDue(ctx context.Context, now time.Time) ([]AutomatedTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM automated_tasks
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListInProgress returns tasks currently being executed, for overdue checks.
func (r *Repository) ListInProgress(ctx context.Context) ([]AutomatedTask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM automated_tasks
		WHERE status = 'in_progress'
		ORDER BY started_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateCAS writes the task back with a compare-and-swap on the version
// column. Racing writers (Fail vs ManualRetry, tick vs callbacks) are
// serialized through this check; the loser gets ErrVersionConflict and
// repeats its read-apply-write loop.
func (r *Repository) UpdateCAS(ctx context.Context, task AutomatedTask) (AutomatedTask, error) {
	metadata, err := encodeMetadata(task.Metadata)
	if err != nil {
		return AutomatedTask{}, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE automated_tasks SET
			name = $3, description = $4, type = $5, status = $6, priority = $7,
			assigned_agent = $8, target_lead_id = $9, scheduled_at = $10,
			started_at = $11, completed_at = $12,
			estimated_duration_minutes = $13, actual_duration_minutes = $14,
			error_message = $15, retry_count = $16, max_retries = $17,
			next_retry_at = $18, workflow_id = $19, metadata = $20,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+taskColumns,
		task.ID, task.Version,
		task.Name, task.Description, task.Type, task.Status, task.Priority,
		task.AssignedAgent, task.TargetLeadID, task.ScheduledAt,
		task.StartedAt, task.CompletedAt,
		task.EstimatedDurationMinutes, task.ActualDurationMinutes,
		task.ErrorMessage, task.RetryCount, task.MaxRetries,
		task.NextRetryAt, task.WorkflowID, metadata,
	)
	updated, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, task.ID); getErr != nil {
			return AutomatedTask{}, getErr
		}
		return AutomatedTask{}, ErrVersionConflict
	}
	return updated, err
}

func collectTasks(rows pgx.Rows) ([]AutomatedTask, error) {
	tasks := make([]AutomatedTask, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
