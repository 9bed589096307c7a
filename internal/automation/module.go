// Package automation provides the rule engine bounded context module.
package automation

import (
	"context"

	"leadflow_backend/internal/automation/handler"
	"leadflow_backend/internal/automation/repository"
	"leadflow_backend/internal/automation/service"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *service.Engine
}

// NewModule creates and initializes the automation module. The engine
// subscribes to lead.created, lead.updated and task.completed only: events
// emitted by its own actions (task.created, task.updated) are deliberately
// not triggers, so one rule pass cannot cascade into another.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, leads service.LeadGateway, tasks service.TaskGateway, notifier service.Notifier, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	engine := service.NewEngine(repo, leads, tasks, notifier, log)

	subscribe := func(name string, toTrigger func(events.Event) (service.TriggerEvent, bool)) {
		eventBus.Subscribe(name, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
			trigger, ok := toTrigger(event)
			if !ok {
				return nil
			}
			return engine.HandleEvent(ctx, trigger)
		}))
	}

	subscribe(events.EventLeadCreated, func(event events.Event) (service.TriggerEvent, bool) {
		e, ok := event.(events.LeadCreated)
		if !ok {
			return service.TriggerEvent{}, false
		}
		return service.TriggerEvent{Trigger: events.EventLeadCreated, LeadID: &e.LeadID}, true
	})
	subscribe(events.EventLeadUpdated, func(event events.Event) (service.TriggerEvent, bool) {
		e, ok := event.(events.LeadUpdated)
		if !ok {
			return service.TriggerEvent{}, false
		}
		return service.TriggerEvent{Trigger: events.EventLeadUpdated, LeadID: &e.LeadID}, true
	})
	subscribe(events.EventLeadStageChanged, func(event events.Event) (service.TriggerEvent, bool) {
		e, ok := event.(events.LeadStageChanged)
		if !ok {
			return service.TriggerEvent{}, false
		}
		return service.TriggerEvent{
			Trigger: events.EventLeadStageChanged,
			LeadID:  &e.LeadID,
			Payload: map[string]interface{}{"from_stage": e.From, "to_stage": e.To},
		}, true
	})
	subscribe(events.EventTaskCompleted, func(event events.Event) (service.TriggerEvent, bool) {
		e, ok := event.(events.TaskCompleted)
		if !ok {
			return service.TriggerEvent{}, false
		}
		return service.TriggerEvent{Trigger: events.EventTaskCompleted, LeadID: e.LeadID, TaskID: &e.TaskID}, true
	})

	return &Module{
		handler: handler.New(engine, val),
		engine:  engine,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Engine returns the rule engine for external use.
func (m *Module) Engine() *service.Engine {
	return m.engine
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRuleRoutes(ctx.V1.Group("/automation/rules"))
	m.handler.RegisterEventRoutes(ctx.V1.Group("/events"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
