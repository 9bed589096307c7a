package changefeed

import (
	"context"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"
)

// Module is the change feed bounded context module implementing http.Module.
type Module struct {
	service *Service
}

// NewModule creates the change feed and subscribes it to every entity event
// so connected UIs see each transition.
func NewModule(eventBus events.Bus, log *logger.Logger) *Module {
	svc := New(log)

	forward := func(name string, toChange func(events.Event) (Change, bool)) {
		eventBus.Subscribe(name, events.HandlerFunc(func(_ context.Context, event events.Event) error {
			change, ok := toChange(event)
			if !ok {
				return nil
			}
			svc.Broadcast(change)
			return nil
		}))
	}

	forward(events.EventLeadCreated, func(event events.Event) (Change, bool) {
		e, ok := event.(events.LeadCreated)
		if !ok {
			return Change{}, false
		}
		return Change{Type: events.EventLeadCreated, LeadID: &e.LeadID}, true
	})
	forward(events.EventLeadUpdated, func(event events.Event) (Change, bool) {
		e, ok := event.(events.LeadUpdated)
		if !ok {
			return Change{}, false
		}
		return Change{Type: events.EventLeadUpdated, LeadID: &e.LeadID}, true
	})
	forward(events.EventLeadStageChanged, func(event events.Event) (Change, bool) {
		e, ok := event.(events.LeadStageChanged)
		if !ok {
			return Change{}, false
		}
		return Change{
			Type:   events.EventLeadStageChanged,
			LeadID: &e.LeadID,
			Data:   map[string]interface{}{"from": e.From, "to": e.To, "correction": e.Correction},
		}, true
	})
	forward(events.EventTaskCreated, func(event events.Event) (Change, bool) {
		e, ok := event.(events.TaskCreated)
		if !ok {
			return Change{}, false
		}
		return Change{Type: events.EventTaskCreated, TaskID: &e.TaskID, LeadID: e.LeadID}, true
	})
	forward(events.EventTaskUpdated, func(event events.Event) (Change, bool) {
		e, ok := event.(events.TaskUpdated)
		if !ok {
			return Change{}, false
		}
		return Change{
			Type:   events.EventTaskUpdated,
			TaskID: &e.TaskID,
			Data:   map[string]interface{}{"from": e.From, "to": e.To},
		}, true
	})
	forward(events.EventTaskOverdue, func(event events.Event) (Change, bool) {
		e, ok := event.(events.TaskOverdue)
		if !ok {
			return Change{}, false
		}
		return Change{
			Type:   events.EventTaskOverdue,
			TaskID: &e.TaskID,
			Data:   map[string]interface{}{"elapsedMinutes": e.ElapsedMinutes, "estimatedMinutes": e.EstimatedMinutes},
		}, true
	})

	return &Module{service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "changefeed"
}

// Service returns the feed for external publishers.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the SSE stream on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/changes", m.service.Handler())
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
