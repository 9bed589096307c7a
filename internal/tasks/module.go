// Package tasks provides the automated-task bounded context module: the
// scheduler service, its HTTP surface and the reconciliation entry point.
package tasks

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/tasks/handler"
	"leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the tasks module with all its
// dependencies. The dispatcher may be nil in processes that do not enqueue
// work (the scheduler worker wires its own).
func NewModule(pool *pgxpool.Pool, dispatcher service.Dispatcher, eventBus events.Bus, val *validator.Validator, cfg config.TaskPolicyConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, dispatcher, eventBus, log, service.Policy{
		BackoffBase:   cfg.GetRetryBackoffBase(),
		BackoffMax:    cfg.GetRetryBackoffMax(),
		OverrunFactor: cfg.GetOverrunFactor(),
	})

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// Service returns the task scheduler service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts task routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/tasks"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
