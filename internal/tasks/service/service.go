// Package service implements the task scheduler: the automated-task state
// machine, retry/backoff and the periodic reconciliation tick.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/query"
	"leadflow_backend/internal/tasks/domain"
	"leadflow_backend/internal/tasks/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// casRetries bounds the internal read-apply-write retry loop on optimistic
// write conflicts before surfacing a conflict to the caller.
const casRetries = 3

// Repository defines the data access interface needed by the scheduler.
type Repository interface {
	Create(ctx context.Context, params repository.CreateTaskParams) (repository.AutomatedTask, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.AutomatedTask, error)
	GetByWorkflowID(ctx context.Context, workflowID string) (repository.AutomatedTask, error)
	List(ctx context.Context) ([]repository.AutomatedTask, error)
	ListFailedDue(ctx context.Context, now time.Time) ([]repository.AutomatedTask, error)
	ListScheduledDue(ctx context.Context, now time.Time) ([]repository.AutomatedTask, error)
	ListInProgress(ctx context.Context) ([]repository.AutomatedTask, error)
	UpdateCAS(ctx context.Context, task repository.AutomatedTask) (repository.AutomatedTask, error)
}

// Dispatcher hands a pending task to the execution side (the asynq queue).
// Dispatch is fire-and-forget: the scheduler only moves state again on an
// explicit Complete/Fail callback.
type Dispatcher interface {
	DispatchTask(ctx context.Context, taskID uuid.UUID) error
}

// Policy holds retry/backoff and overdue tuning.
type Policy struct {
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	OverrunFactor float64
}

// Service drives automated tasks through their lifecycle. It is the only
// component allowed to change task status.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	bus        events.Bus
	log        *logger.Logger
	policy     Policy
	now        func() time.Time

	// reconcileMu keeps reconciliation ticks from overlapping.
	reconcileMu sync.Mutex
}

// New creates a new task scheduler service. The dispatcher may be nil when no
// queue is configured; pending tasks then wait for the reconciliation tick of
// a worker that has one.
func New(repo Repository, dispatcher Dispatcher, bus events.Bus, log *logger.Logger, policy Policy) *Service {
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = 30 * time.Second
	}
	if policy.BackoffMax < policy.BackoffBase {
		policy.BackoffMax = time.Hour
	}
	if policy.OverrunFactor < 1 {
		policy.OverrunFactor = 1.5
	}

	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		policy:     policy,
		now:        time.Now,
	}
}

// ScheduleParams holds the fields for creating a new automated task.
type ScheduleParams struct {
	Name                     string
	Description              string
	Type                     string
	Priority                 string
	AssignedAgent            string
	TargetLeadID             *uuid.UUID
	ScheduledAt              time.Time
	EstimatedDurationMinutes int
	MaxRetries               int
	Metadata                 map[string]string
}

// Schedule inserts a new task. It lands in `pending` when its start time has
// already arrived, otherwise `scheduled` until the reconciliation tick
// activates it.
func (s *Service) Schedule(ctx context.Context, params ScheduleParams) (repository.AutomatedTask, error) {
	if params.MaxRetries < 0 {
		return repository.AutomatedTask{}, apperr.Validation("max_retries must not be negative")
	}
	if params.EstimatedDurationMinutes <= 0 {
		return repository.AutomatedTask{}, apperr.Validation("estimated_duration must be positive")
	}
	if params.Name == "" || params.Type == "" {
		return repository.AutomatedTask{}, apperr.Validation("name and type are required")
	}
	if params.Priority == "" {
		params.Priority = domain.PriorityMedium
	}
	if !domain.IsKnownPriority(params.Priority) {
		return repository.AutomatedTask{}, apperr.Validation("unknown priority: " + params.Priority)
	}

	now := s.now()
	scheduledAt := params.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	status := domain.StatusScheduled
	if !scheduledAt.After(now) {
		status = domain.StatusPending
	}

	task, err := s.repo.Create(ctx, repository.CreateTaskParams{
		Name:                     params.Name,
		Description:              params.Description,
		Type:                     params.Type,
		Status:                   status,
		Priority:                 params.Priority,
		AssignedAgent:            params.AssignedAgent,
		TargetLeadID:             params.TargetLeadID,
		ScheduledAt:              scheduledAt,
		EstimatedDurationMinutes: params.EstimatedDurationMinutes,
		MaxRetries:               params.MaxRetries,
		WorkflowID:               "wf_" + uuid.NewString(),
		Metadata:                 params.Metadata,
	})
	if err != nil {
		return repository.AutomatedTask{}, err
	}

	s.publish(ctx, events.TaskCreated{BaseEvent: events.NewBaseEvent(), TaskID: task.ID, LeadID: task.TargetLeadID})
	if task.Status == domain.StatusPending {
		s.dispatch(ctx, task.ID)
	}

	return task, nil
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.AutomatedTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.AutomatedTask{}, apperr.NotFound("task not found")
	}
	return task, err
}

// GetByWorkflowID resolves a task from its opaque workflow reference.
func (s *Service) GetByWorkflowID(ctx context.Context, workflowID string) (repository.AutomatedTask, error) {
	task, err := s.repo.GetByWorkflowID(ctx, workflowID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.AutomatedTask{}, apperr.NotFound("task not found")
	}
	return task, err
}

// List returns tasks matching the filter, sorted.
func (s *Service) List(ctx context.Context, filter query.TaskFilter, sortKey, sortDir string) ([]repository.AutomatedTask, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	tasks = query.FilterTasks(tasks, filter)
	query.SortTasks(tasks, sortKey, sortDir)
	return tasks, nil
}

// Start moves a pending task to in_progress. started_at is set on the first
// start only; retries keep the original value.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (repository.AutomatedTask, error) {
	return s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if err := requireTransition(task.Status, domain.StatusInProgress); err != nil {
			return err
		}
		task.Status = domain.StatusInProgress
		if task.StartedAt == nil {
			now := s.now()
			task.StartedAt = &now
		}
		return nil
	})
}

// Complete records the successful outcome reported by the workflow executor.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actualDurationMinutes int) (repository.AutomatedTask, error) {
	task, err := s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if err := requireTransition(task.Status, domain.StatusCompleted); err != nil {
			return err
		}
		now := s.now()
		task.Status = domain.StatusCompleted
		task.CompletedAt = &now
		if actualDurationMinutes > 0 {
			task.ActualDurationMinutes = &actualDurationMinutes
		}
		task.NextRetryAt = nil
		task.ErrorMessage = nil
		return nil
	})
	if err != nil {
		return task, err
	}

	s.publish(ctx, events.TaskCompleted{BaseEvent: events.NewBaseEvent(), TaskID: task.ID, LeadID: task.TargetLeadID})
	return task, nil
}

// Fail records a failure reported by the workflow executor. Each failure
// spends one unit of the retry budget. While budget remains the task stays
// failed with next_retry_at set for the reconciliation tick; the caller never
// sees an error for that. The failure that spends the last unit leaves the
// task terminally failed with next_retry_at unset.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, errorMessage string) (repository.AutomatedTask, error) {
	return s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if err := requireTransition(task.Status, domain.StatusFailed); err != nil {
			return err
		}
		task.Status = domain.StatusFailed
		task.ErrorMessage = &errorMessage
		task.NextRetryAt = nil
		if task.RetryCount < task.MaxRetries {
			delay := domain.Backoff(s.policy.BackoffBase, s.policy.BackoffMax, task.RetryCount)
			task.RetryCount++
			if task.RetryCount < task.MaxRetries {
				retryAt := s.now().Add(delay)
				task.NextRetryAt = &retryAt
			}
		}
		return nil
	})
}

// Pause suspends a pending or in-progress task. Pausing an already paused
// task is a no-op.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (repository.AutomatedTask, error) {
	return s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if task.Status == domain.StatusPaused {
			return errNoChange
		}
		if err := requireTransition(task.Status, domain.StatusPaused); err != nil {
			return err
		}
		task.Status = domain.StatusPaused
		return nil
	})
}

// Resume returns a paused task to pending. Resuming a pending task is a
// no-op.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (repository.AutomatedTask, error) {
	var resumed bool
	task, err := s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		resumed = false
		if task.Status == domain.StatusPending {
			return errNoChange
		}
		if task.Status != domain.StatusPaused {
			return invalidTransition(task.Status, domain.StatusPending)
		}
		task.Status = domain.StatusPending
		resumed = true
		return nil
	})
	if err != nil {
		return task, err
	}
	// A no-op resume of an already pending task must not re-enqueue it.
	if resumed {
		s.dispatch(ctx, task.ID)
	}
	return task, nil
}

// ManualRetry force-transitions a failed task back to pending regardless of
// next_retry_at. Retrying past the budget requires the explicit override
// flag; without it the call fails with RetryExhausted. This keeps the
// retry_count <= max_retries invariant except under deliberate override.
func (s *Service) ManualRetry(ctx context.Context, id uuid.UUID, override bool) (repository.AutomatedTask, error) {
	task, err := s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if err := requireTransition(task.Status, domain.StatusPending); err != nil {
			return err
		}
		if task.RetryCount >= task.MaxRetries && !override {
			return apperr.RetryExhausted(fmt.Sprintf("retry budget spent (%d/%d); set override to force", task.RetryCount, task.MaxRetries))
		}
		task.Status = domain.StatusPending
		task.RetryCount++
		task.NextRetryAt = nil
		return nil
	})
	if err != nil {
		return task, err
	}
	s.dispatch(ctx, task.ID)
	return task, nil
}

// SetPriority changes the task's priority without touching its status. Used
// by automation rule actions.
func (s *Service) SetPriority(ctx context.Context, id uuid.UUID, priority string) (repository.AutomatedTask, error) {
	if !domain.IsKnownPriority(priority) {
		return repository.AutomatedTask{}, apperr.Validation("unknown priority: " + priority)
	}
	return s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		task.Priority = priority
		return nil
	})
}

// Reassign hands the task to another agent. Used by automation rule actions.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, agent string) (repository.AutomatedTask, error) {
	return s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		task.AssignedAgent = agent
		return nil
	})
}

// Reconcile is the periodic tick. It activates due scheduled tasks, promotes
// retry-eligible failed tasks back to pending and raises advisory overdue
// alerts. The tick never overlaps itself and every step is idempotent: a
// record raced away by a concurrent writer is simply picked up next tick.
func (s *Service) Reconcile(ctx context.Context) error {
	if !s.reconcileMu.TryLock() {
		return nil
	}
	defer s.reconcileMu.Unlock()

	now := s.now()

	due, err := s.repo.ListScheduledDue(ctx, now)
	if err != nil {
		return err
	}
	for _, task := range due {
		s.activate(ctx, task.ID)
	}

	retryable, err := s.repo.ListFailedDue(ctx, now)
	if err != nil {
		return err
	}
	for _, task := range retryable {
		s.autoRetry(ctx, task.ID)
	}

	inProgress, err := s.repo.ListInProgress(ctx)
	if err != nil {
		return err
	}
	for _, task := range inProgress {
		s.checkOverdue(ctx, task, now)
	}

	return nil
}

// activate moves a due scheduled task to pending and dispatches it.
func (s *Service) activate(ctx context.Context, id uuid.UUID) {
	task, err := s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if task.Status != domain.StatusScheduled {
			return errNoChange
		}
		task.Status = domain.StatusPending
		return nil
	})
	if err != nil {
		s.logReconcileSkip("activate", id, err)
		return
	}
	if task.Status == domain.StatusPending {
		s.dispatch(ctx, task.ID)
	}
}

// autoRetry promotes a retry-due failed task back to pending. The budget was
// already charged when the failure was recorded.
func (s *Service) autoRetry(ctx context.Context, id uuid.UUID) {
	task, err := s.transition(ctx, id, func(task *repository.AutomatedTask) error {
		if task.Status != domain.StatusFailed || task.NextRetryAt == nil || task.NextRetryAt.After(s.now()) {
			return errNoChange
		}
		task.Status = domain.StatusPending
		task.NextRetryAt = nil
		return nil
	})
	if err != nil {
		s.logReconcileSkip("auto_retry", id, err)
		return
	}
	if task.Status == domain.StatusPending {
		s.dispatch(ctx, task.ID)
	}
}

// checkOverdue raises a non-mutating advisory alert for tasks running past
// their estimate.
func (s *Service) checkOverdue(ctx context.Context, task repository.AutomatedTask, now time.Time) {
	if task.StartedAt == nil || task.EstimatedDurationMinutes <= 0 {
		return
	}
	elapsed := now.Sub(*task.StartedAt)
	threshold := time.Duration(float64(task.EstimatedDurationMinutes) * s.policy.OverrunFactor * float64(time.Minute))
	if elapsed <= threshold {
		return
	}

	elapsedMinutes := int(elapsed / time.Minute)
	if s.log != nil {
		s.log.TaskOverdue(task.ID.String(), elapsedMinutes, task.EstimatedDurationMinutes)
	}
	s.publish(ctx, events.TaskOverdue{
		BaseEvent:        events.NewBaseEvent(),
		TaskID:           task.ID,
		ElapsedMinutes:   elapsedMinutes,
		EstimatedMinutes: task.EstimatedDurationMinutes,
	})
}

// errNoChange marks a transition closure that decided to leave the task
// untouched (no-op guard). It never escapes the service.
var errNoChange = errors.New("no change")

// transition runs a read-apply-write loop with a bounded retry on optimistic
// write conflicts. The apply closure validates the move and mutates the
// snapshot; any apperr it returns is surfaced unchanged.
func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*repository.AutomatedTask) error) (repository.AutomatedTask, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		task, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.AutomatedTask{}, apperr.NotFound("task not found")
		}
		if err != nil {
			return repository.AutomatedTask{}, err
		}

		from := task.Status
		if err := apply(&task); err != nil {
			if errors.Is(err, errNoChange) {
				return task, nil
			}
			return repository.AutomatedTask{}, err
		}

		updated, err := s.repo.UpdateCAS(ctx, task)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return repository.AutomatedTask{}, err
		}

		if s.log != nil && from != updated.Status {
			s.log.TaskTransition(updated.ID.String(), from, updated.Status, updated.RetryCount)
		}
		s.publish(ctx, events.TaskUpdated{BaseEvent: events.NewBaseEvent(), TaskID: updated.ID, From: from, To: updated.Status})
		return updated, nil
	}

	return repository.AutomatedTask{}, apperr.Conflict("task was modified concurrently, retry the operation")
}

func requireTransition(from, to string) error {
	if !domain.CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	return nil
}

func invalidTransition(from, to string) error {
	return apperr.InvalidTransition(fmt.Sprintf("cannot transition task from %s to %s", from, to))
}

func (s *Service) dispatch(ctx context.Context, id uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.DispatchTask(ctx, id); err != nil && s.log != nil {
		s.log.Warn("task dispatch failed", "taskId", id, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

func (s *Service) logReconcileSkip(step string, id uuid.UUID, err error) {
	if s.log != nil {
		s.log.Warn("reconcile step skipped", "step", step, "taskId", id, "error", err)
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
