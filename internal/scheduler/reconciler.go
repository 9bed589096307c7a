package scheduler

import (
	"context"
	"time"

	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Reconciler drives the task scheduler's periodic tick: activating due
// scheduled tasks, promoting retry-eligible failures and raising overdue
// alerts.
type Reconciler struct {
	tasks    *service.Service
	interval time.Duration
	log      *logger.Logger
}

func NewReconciler(cfg config.TaskPolicyConfig, tasks *service.Service, log *logger.Logger) *Reconciler {
	interval := cfg.GetReconcileInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		tasks:    tasks,
		interval: interval,
		log:      log,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	if r == nil || r.tasks == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.tasks.Reconcile(ctx); err != nil {
			r.log.Warn("reconcile tick failed", "error", err)
		}
	}
}
