// Package transport defines the request/response DTOs for the automation
// module.
package transport

import (
	"time"

	"leadflow_backend/internal/automation/repository"

	"github.com/google/uuid"
)

// Request DTOs
type ActionRequest struct {
	Type                     string            `json:"type" validate:"required,oneof=create_task set_priority reassign notify"`
	TaskName                 string            `json:"taskName,omitempty" validate:"max=200"`
	TaskType                 string            `json:"taskType,omitempty" validate:"max=100"`
	Priority                 string            `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	AssignedAgent            string            `json:"assignedAgent,omitempty" validate:"max=100"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes,omitempty" validate:"min=0"`
	MaxRetries               int               `json:"maxRetries,omitempty" validate:"min=0"`
	DelayMinutes             int               `json:"delayMinutes,omitempty" validate:"min=0"`
	Message                  string            `json:"message,omitempty" validate:"max=2000"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
}

type CreateRuleRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Trigger       string          `json:"trigger" validate:"required,min=1,max=100"`
	Conditions    []string        `json:"conditions,omitempty" validate:"dive,max=500"`
	Actions       []ActionRequest `json:"actions" validate:"required,min=1,dive"`
	IsActive      bool            `json:"isActive"`
	AssignedAgent string          `json:"assignedAgent,omitempty" validate:"max=100"`
}

type UpdateRuleRequest struct {
	Name          *string         `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Trigger       *string         `json:"trigger,omitempty" validate:"omitempty,min=1,max=100"`
	Conditions    []string        `json:"conditions,omitempty" validate:"omitempty,dive,max=500"`
	Actions       []ActionRequest `json:"actions,omitempty" validate:"omitempty,dive"`
	IsActive      *bool           `json:"isActive,omitempty"`
	AssignedAgent *string         `json:"assignedAgent,omitempty" validate:"omitempty,max=100"`
}

// IngestEventRequest is the generic event ingress: external systems (or the
// UI) report an occurrence and the engine runs a rule pass over it.
type IngestEventRequest struct {
	Type    string                 `json:"type" validate:"required,min=1,max=100"`
	LeadID  *uuid.UUID             `json:"leadId,omitempty"`
	TaskID  *uuid.UUID             `json:"taskId,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Response DTOs
type RuleResponse struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Trigger       string              `json:"trigger"`
	Conditions    []string            `json:"conditions"`
	Actions       []repository.Action `json:"actions"`
	IsActive      bool                `json:"isActive"`
	AssignedAgent string              `json:"assignedAgent,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func ToRuleResponse(rule repository.Rule) RuleResponse {
	return RuleResponse{
		ID:            rule.ID,
		Name:          rule.Name,
		Trigger:       rule.Trigger,
		Conditions:    rule.Conditions,
		Actions:       rule.Actions,
		IsActive:      rule.IsActive,
		AssignedAgent: rule.AssignedAgent,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}

func ToRuleResponses(rules []repository.Rule) []RuleResponse {
	out := make([]RuleResponse, len(rules))
	for i, rule := range rules {
		out[i] = ToRuleResponse(rule)
	}
	return out
}

// ToActions converts request actions to their storage form.
func ToActions(reqs []ActionRequest) []repository.Action {
	if reqs == nil {
		return nil
	}
	out := make([]repository.Action, len(reqs))
	for i, req := range reqs {
		out[i] = repository.Action{
			Type:                     req.Type,
			TaskName:                 req.TaskName,
			TaskType:                 req.TaskType,
			Priority:                 req.Priority,
			AssignedAgent:            req.AssignedAgent,
			EstimatedDurationMinutes: req.EstimatedDurationMinutes,
			MaxRetries:               req.MaxRetries,
			DelayMinutes:             req.DelayMinutes,
			Message:                  req.Message,
			Metadata:                 req.Metadata,
		}
	}
	return out
}
