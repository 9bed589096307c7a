// Package transport defines the request/response DTOs for the tasks module.
package transport

import (
	"time"

	"leadflow_backend/internal/tasks/repository"

	"github.com/google/uuid"
)

// Request DTOs
type CreateTaskRequest struct {
	Name                     string            `json:"name" validate:"required,min=1,max=200"`
	Description              string            `json:"description,omitempty" validate:"max=2000"`
	Type                     string            `json:"type" validate:"required,min=1,max=100"`
	Priority                 string            `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	AssignedAgent            string            `json:"assignedAgent,omitempty" validate:"max=100"`
	LeadID                   *uuid.UUID        `json:"leadId,omitempty"`
	ScheduledAt              *time.Time        `json:"scheduledAt,omitempty"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes" validate:"required,min=1"`
	MaxRetries               int               `json:"maxRetries" validate:"min=0"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
}

type CompleteTaskRequest struct {
	ActualDurationMinutes int `json:"actualDurationMinutes" validate:"min=0"`
}

type FailTaskRequest struct {
	Error string `json:"error" validate:"required,max=2000"`
}

type RetryTaskRequest struct {
	Override bool `json:"override"`
}

type ListTasksRequest struct {
	Status    []string `form:"status" validate:"dive,oneof=scheduled pending in_progress completed failed paused"`
	Type      []string `form:"type" validate:"dive,max=100"`
	Priority  []string `form:"priority" validate:"dive,oneof=low medium high critical"`
	Agent     string   `form:"agent" validate:"max=100"`
	Search    string   `form:"search" validate:"max=100"`
	SortBy    string   `form:"sortBy" validate:"omitempty,oneof=date status"`
	SortOrder string   `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Response DTOs
type TaskResponse struct {
	ID                       uuid.UUID         `json:"id"`
	Name                     string            `json:"name"`
	Description              string            `json:"description,omitempty"`
	Type                     string            `json:"type"`
	Status                   string            `json:"status"`
	Priority                 string            `json:"priority"`
	AssignedAgent            string            `json:"assignedAgent,omitempty"`
	LeadID                   *uuid.UUID        `json:"leadId,omitempty"`
	ScheduledAt              time.Time         `json:"scheduledAt"`
	StartedAt                *time.Time        `json:"startedAt,omitempty"`
	CompletedAt              *time.Time        `json:"completedAt,omitempty"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes"`
	ActualDurationMinutes    *int              `json:"actualDurationMinutes,omitempty"`
	ErrorMessage             *string           `json:"errorMessage,omitempty"`
	RetryCount               int               `json:"retryCount"`
	MaxRetries               int               `json:"maxRetries"`
	NextRetryAt              *time.Time        `json:"nextRetryAt,omitempty"`
	WorkflowID               string            `json:"workflowId"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
	Version                  int64             `json:"version"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
}

func ToTaskResponse(task repository.AutomatedTask) TaskResponse {
	return TaskResponse{
		ID:                       task.ID,
		Name:                     task.Name,
		Description:              task.Description,
		Type:                     task.Type,
		Status:                   task.Status,
		Priority:                 task.Priority,
		AssignedAgent:            task.AssignedAgent,
		LeadID:                   task.TargetLeadID,
		ScheduledAt:              task.ScheduledAt,
		StartedAt:                task.StartedAt,
		CompletedAt:              task.CompletedAt,
		EstimatedDurationMinutes: task.EstimatedDurationMinutes,
		ActualDurationMinutes:    task.ActualDurationMinutes,
		ErrorMessage:             task.ErrorMessage,
		RetryCount:               task.RetryCount,
		MaxRetries:               task.MaxRetries,
		NextRetryAt:              task.NextRetryAt,
		WorkflowID:               task.WorkflowID,
		Metadata:                 task.Metadata,
		Version:                  task.Version,
		CreatedAt:                task.CreatedAt,
		UpdatedAt:                task.UpdatedAt,
	}
}

func ToTaskResponses(tasks []repository.AutomatedTask) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskResponse(task)
	}
	return out
}
