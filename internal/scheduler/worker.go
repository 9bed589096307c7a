package scheduler

import (
	"context"
	"fmt"

	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/internal/workflow"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	tasks    *service.Service
	executor workflow.Executor
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, tasks *service.Service, executor workflow.Executor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		tasks:    tasks,
		executor: executor,
		log:      log,
	}

	mux.HandleFunc(TaskDispatch, w.handleTaskDispatch)

	return w, nil
}

// handleTaskDispatch starts the task and hands it to the workflow executor.
// A task that is no longer pending (paused, completed, raced by another
// worker) is skipped without error; the queue message is spent either way.
func (w *Worker) handleTaskDispatch(ctx context.Context, msg *asynq.Task) error {
	payload, err := ParseTaskDispatchPayload(msg)
	if err != nil {
		return err
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return err
	}

	started, err := w.tasks.Start(ctx, taskID)
	if err != nil {
		switch apperr.GetKind(err) {
		case apperr.KindInvalidTransition, apperr.KindNotFound:
			w.log.Info("skipping dispatch, task no longer pending", "taskId", taskID, "reason", err.Error())
			return nil
		default:
			return err
		}
	}

	if err := w.executor.Dispatch(ctx, started); err != nil {
		// Hand-off failure counts as a task failure; retry/backoff bookkeeping
		// happens inside the task scheduler.
		if _, failErr := w.tasks.Fail(ctx, taskID, "workflow dispatch failed: "+err.Error()); failErr != nil {
			w.log.Error("could not record dispatch failure", "taskId", taskID, "error", failErr)
		}
		return nil
	}

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
