// Package adapters bridges module boundaries: it implements the consumer
// interfaces one module defines with the services another module exposes.
package adapters

import (
	"context"

	automationsvc "leadflow_backend/internal/automation/service"
	leadsvc "leadflow_backend/internal/leads/service"
	tasksvc "leadflow_backend/internal/tasks/service"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// AutomationLeadGateway adapts the lead service to the rule engine.
type AutomationLeadGateway struct {
	svc *leadsvc.Service
}

func NewAutomationLeadGateway(svc *leadsvc.Service) *AutomationLeadGateway {
	return &AutomationLeadGateway{svc: svc}
}

func (g *AutomationLeadGateway) Fields(ctx context.Context, id uuid.UUID) (map[string]interface{}, error) {
	lead, err := g.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"name":              lead.Name,
		"phone":             lead.Phone,
		"source":            lead.Source,
		"score":             lead.Score,
		"status":            lead.Status,
		"location":          lead.Location,
		"property_interest": lead.PropertyInterest,
		"assigned_agent":    lead.AssignedAgent,
	}
	if lead.Email != nil {
		fields["email"] = *lead.Email
	}
	if lead.BudgetMin != nil {
		fields["budget_min"] = *lead.BudgetMin
	}
	if lead.BudgetMax != nil {
		fields["budget_max"] = *lead.BudgetMax
	}
	return fields, nil
}

func (g *AutomationLeadGateway) Reassign(ctx context.Context, id uuid.UUID, agent string) error {
	_, err := g.svc.Reassign(ctx, id, agent)
	return err
}

// AutomationTaskGateway adapts the task scheduler to the rule engine.
type AutomationTaskGateway struct {
	svc *tasksvc.Service
}

func NewAutomationTaskGateway(svc *tasksvc.Service) *AutomationTaskGateway {
	return &AutomationTaskGateway{svc: svc}
}

func (g *AutomationTaskGateway) Fields(ctx context.Context, id uuid.UUID) (map[string]interface{}, error) {
	task, err := g.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"task_name":               task.Name,
		"task_type":               task.Type,
		"task_status":             task.Status,
		"task_priority":           task.Priority,
		"task_assigned_agent":     task.AssignedAgent,
		"task_retry_count":        task.RetryCount,
		"task_max_retries":        task.MaxRetries,
		"task_estimated_duration": task.EstimatedDurationMinutes,
	}, nil
}

func (g *AutomationTaskGateway) Schedule(ctx context.Context, params automationsvc.TaskParams) error {
	_, err := g.svc.Schedule(ctx, tasksvc.ScheduleParams{
		Name:                     params.Name,
		Type:                     params.Type,
		Priority:                 params.Priority,
		AssignedAgent:            params.AssignedAgent,
		TargetLeadID:             params.LeadID,
		ScheduledAt:              params.ScheduledAt,
		EstimatedDurationMinutes: params.EstimatedDurationMinutes,
		MaxRetries:               params.MaxRetries,
		Metadata:                 params.Metadata,
	})
	return err
}

func (g *AutomationTaskGateway) SetPriority(ctx context.Context, id uuid.UUID, priority string) error {
	_, err := g.svc.SetPriority(ctx, id, priority)
	return err
}

func (g *AutomationTaskGateway) Reassign(ctx context.Context, id uuid.UUID, agent string) error {
	_, err := g.svc.Reassign(ctx, id, agent)
	return err
}

// LogNotifier delivers notify-actions to the application log. Messages are
// advisory; there is no outbound channel for them in this core.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, message string, leadID, taskID *uuid.UUID) error {
	args := []any{"message", message}
	if leadID != nil {
		args = append(args, "leadId", *leadID)
	}
	if taskID != nil {
		args = append(args, "taskId", *taskID)
	}
	n.log.Info("automation notification", args...)
	return nil
}

// Compile-time checks that the adapters satisfy the engine's ports.
var (
	_ automationsvc.LeadGateway = (*AutomationLeadGateway)(nil)
	_ automationsvc.TaskGateway = (*AutomationTaskGateway)(nil)
	_ automationsvc.Notifier    = (*LogNotifier)(nil)
)
