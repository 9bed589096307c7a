// Package service implements the automation rule engine: declarative
// trigger/condition/action rules evaluated against domain events.
package service

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/automation/domain"
	"leadflow_backend/internal/automation/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Action types executed by the engine, in the order the rule declares them.
const (
	ActionCreateTask  = "create_task"
	ActionSetPriority = "set_priority"
	ActionReassign    = "reassign"
	ActionNotify      = "notify"
)

// Defaults applied to create_task actions that leave fields unset.
const (
	defaultTaskType       = "lead_followup"
	defaultTaskPriority   = "medium"
	defaultTaskDuration   = 30
	defaultTaskMaxRetries = 3
)

// TaskParams is the engine's request to schedule a task.
type TaskParams struct {
	Name                     string
	Type                     string
	Priority                 string
	AssignedAgent            string
	LeadID                   *uuid.UUID
	ScheduledAt              time.Time
	EstimatedDurationMinutes int
	MaxRetries               int
	Metadata                 map[string]string
}

// LeadGateway exposes the lead operations the engine needs.
type LeadGateway interface {
	// Fields returns the lead's attributes as condition-language fields.
	Fields(ctx context.Context, id uuid.UUID) (map[string]interface{}, error)
	Reassign(ctx context.Context, id uuid.UUID, agent string) error
}

// TaskGateway exposes the task operations the engine needs.
type TaskGateway interface {
	// Fields returns the task's attributes as condition-language fields,
	// prefixed with "task_" to keep them apart from lead fields.
	Fields(ctx context.Context, id uuid.UUID) (map[string]interface{}, error)
	Schedule(ctx context.Context, params TaskParams) error
	SetPriority(ctx context.Context, id uuid.UUID, priority string) error
	Reassign(ctx context.Context, id uuid.UUID, agent string) error
}

// Notifier delivers notify-action messages.
type Notifier interface {
	Notify(ctx context.Context, message string, leadID, taskID *uuid.UUID) error
}

// RuleRepository defines the data access interface needed by the engine.
type RuleRepository interface {
	Create(ctx context.Context, params repository.CreateRuleParams) (repository.Rule, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Rule, error)
	List(ctx context.Context) ([]repository.Rule, error)
	ListActiveByTrigger(ctx context.Context, trigger string) ([]repository.Rule, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateRuleParams) (repository.Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TriggerEvent is one occurrence the engine evaluates rules against.
type TriggerEvent struct {
	Trigger string
	LeadID  *uuid.UUID
	TaskID  *uuid.UUID
	// Payload carries extra event attributes (e.g. an inbound message text).
	Payload map[string]interface{}
}

// Engine evaluates automation rules. It never subscribes to events produced
// by its own actions, so one event cannot cascade synchronously into another
// rule pass.
type Engine struct {
	repo     RuleRepository
	leads    LeadGateway
	tasks    TaskGateway
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewEngine(repo RuleRepository, leads LeadGateway, tasks TaskGateway, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		repo:     repo,
		leads:    leads,
		tasks:    tasks,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// HandleEvent runs one rule pass for the event. Rules whose conditions cannot
// be evaluated are logged and skipped; a failing action is logged and the
// remaining actions still run. The pass itself only fails when rules cannot
// be loaded at all.
func (e *Engine) HandleEvent(ctx context.Context, ev TriggerEvent) error {
	rules, err := e.repo.ListActiveByTrigger(ctx, ev.Trigger)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	fields, err := e.buildFields(ctx, ev)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		matched, err := domain.EvaluateAll(rule.Conditions, fields)
		if err != nil {
			if e.log != nil {
				e.log.RuleSkipped(rule.ID.String(), ev.Trigger, err.Error())
			}
			continue
		}
		if !matched {
			continue
		}

		if e.log != nil {
			e.log.Info("automation rule fired", "ruleId", rule.ID, "rule", rule.Name, "trigger", ev.Trigger)
		}
		for _, action := range rule.Actions {
			if err := e.execute(ctx, rule, action, ev); err != nil && e.log != nil {
				e.log.Warn("automation action failed",
					"ruleId", rule.ID, "action", action.Type, "error", err)
			}
		}
	}

	return nil
}

// buildFields assembles the condition-language field map: the event payload,
// then the lead's attributes, then the task's.
func (e *Engine) buildFields(ctx context.Context, ev TriggerEvent) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(ev.Payload)+16)
	for k, v := range ev.Payload {
		fields[k] = v
	}

	if ev.LeadID != nil {
		leadFields, err := e.leads.Fields(ctx, *ev.LeadID)
		if err != nil {
			return nil, err
		}
		for k, v := range leadFields {
			fields[k] = v
		}
	}
	if ev.TaskID != nil {
		taskFields, err := e.tasks.Fields(ctx, *ev.TaskID)
		if err != nil {
			return nil, err
		}
		for k, v := range taskFields {
			fields[k] = v
		}
	}
	return fields, nil
}

func (e *Engine) execute(ctx context.Context, rule repository.Rule, action repository.Action, ev TriggerEvent) error {
	switch action.Type {
	case ActionCreateTask:
		return e.tasks.Schedule(ctx, e.taskParams(rule, action, ev))
	case ActionSetPriority:
		if ev.TaskID == nil {
			return errors.New("set_priority requires a task in the event")
		}
		if action.Priority == "" {
			return errors.New("set_priority action has no priority")
		}
		return e.tasks.SetPriority(ctx, *ev.TaskID, action.Priority)
	case ActionReassign:
		agent := action.AssignedAgent
		if agent == "" {
			agent = rule.AssignedAgent
		}
		if agent == "" {
			return errors.New("reassign action has no agent")
		}
		if ev.LeadID != nil {
			return e.leads.Reassign(ctx, *ev.LeadID, agent)
		}
		if ev.TaskID != nil {
			return e.tasks.Reassign(ctx, *ev.TaskID, agent)
		}
		return errors.New("reassign requires a lead or task in the event")
	case ActionNotify:
		message := action.Message
		if message == "" {
			message = rule.Name
		}
		return e.notifier.Notify(ctx, message, ev.LeadID, ev.TaskID)
	default:
		return errors.New("unknown action type: " + action.Type)
	}
}

func (e *Engine) taskParams(rule repository.Rule, action repository.Action, ev TriggerEvent) TaskParams {
	params := TaskParams{
		Name:                     action.TaskName,
		Type:                     action.TaskType,
		Priority:                 action.Priority,
		AssignedAgent:            action.AssignedAgent,
		LeadID:                   ev.LeadID,
		ScheduledAt:              e.now().Add(time.Duration(action.DelayMinutes) * time.Minute),
		EstimatedDurationMinutes: action.EstimatedDurationMinutes,
		MaxRetries:               action.MaxRetries,
		Metadata:                 action.Metadata,
	}
	if params.Name == "" {
		params.Name = rule.Name
	}
	if params.Type == "" {
		params.Type = defaultTaskType
	}
	if params.Priority == "" {
		params.Priority = defaultTaskPriority
	}
	if params.AssignedAgent == "" {
		params.AssignedAgent = rule.AssignedAgent
	}
	if params.EstimatedDurationMinutes <= 0 {
		params.EstimatedDurationMinutes = defaultTaskDuration
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = defaultTaskMaxRetries
	}
	return params
}

// Rule CRUD. The engine validates what it can up front; the runtime skip path
// in HandleEvent still guards against rules seeded or edited out-of-band.

func (e *Engine) CreateRule(ctx context.Context, params repository.CreateRuleParams) (repository.Rule, error) {
	if err := validateRule(params.Trigger, params.Conditions, params.Actions); err != nil {
		return repository.Rule{}, err
	}
	return e.repo.Create(ctx, params)
}

func (e *Engine) GetRule(ctx context.Context, id uuid.UUID) (repository.Rule, error) {
	rule, err := e.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Rule{}, apperr.NotFound("automation rule not found")
	}
	return rule, err
}

func (e *Engine) ListRules(ctx context.Context) ([]repository.Rule, error) {
	return e.repo.List(ctx)
}

func (e *Engine) UpdateRule(ctx context.Context, id uuid.UUID, params repository.UpdateRuleParams) (repository.Rule, error) {
	if params.Conditions != nil || params.Actions != nil {
		trigger := ""
		if params.Trigger != nil {
			trigger = *params.Trigger
		}
		if err := validateRule(trigger, params.Conditions, params.Actions); err != nil {
			return repository.Rule{}, err
		}
	}
	rule, err := e.repo.Update(ctx, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Rule{}, apperr.NotFound("automation rule not found")
	}
	return rule, err
}

func (e *Engine) DeleteRule(ctx context.Context, id uuid.UUID) error {
	err := e.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("automation rule not found")
	}
	return err
}

func validateRule(trigger string, conditions []string, actions []repository.Action) error {
	for _, expr := range conditions {
		if _, err := domain.ParseCondition(expr); err != nil {
			return apperr.Validation(err.Error())
		}
	}
	for _, action := range actions {
		switch action.Type {
		case ActionCreateTask, ActionSetPriority, ActionReassign, ActionNotify:
		default:
			return apperr.Validation("unknown action type: " + action.Type)
		}
	}
	return nil
}
