// Package workflow talks to the external workflow engine that actually
// performs automated tasks. The engine reports outcomes back through the
// webhook ingress; this side only hands work over.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadflow_backend/internal/tasks/repository"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Executor hands a task to the external engine. Dispatch is asynchronous:
// a nil error means the engine accepted the work, not that it finished.
type Executor interface {
	Dispatch(ctx context.Context, task repository.AutomatedTask) error
}

// dispatchRequest is the payload posted to the executor.
type dispatchRequest struct {
	WorkflowID               string            `json:"workflowId"`
	TaskID                   string            `json:"taskId"`
	Name                     string            `json:"name"`
	Type                     string            `json:"type"`
	Priority                 string            `json:"priority"`
	AssignedAgent            string            `json:"assignedAgent,omitempty"`
	LeadID                   string            `json:"leadId,omitempty"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
}

// HTTPExecutor posts dispatch requests to a configured endpoint.
type HTTPExecutor struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

// NewExecutor builds the executor from configuration. When no endpoint is
// configured it returns a no-op executor: dispatched tasks then wait in
// in_progress for completion through the task API or webhook.
func NewExecutor(cfg config.WorkflowConfig, log *logger.Logger) Executor {
	if !cfg.IsWorkflowExecutorEnabled() {
		log.Info("workflow executor not configured, tasks await external completion")
		return noopExecutor{}
	}
	return &HTTPExecutor{
		url:    cfg.GetWorkflowExecutorURL(),
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

func (e *HTTPExecutor) Dispatch(ctx context.Context, task repository.AutomatedTask) error {
	payload := dispatchRequest{
		WorkflowID:               task.WorkflowID,
		TaskID:                   task.ID.String(),
		Name:                     task.Name,
		Type:                     task.Type,
		Priority:                 task.Priority,
		AssignedAgent:            task.AssignedAgent,
		EstimatedDurationMinutes: task.EstimatedDurationMinutes,
		Metadata:                 task.Metadata,
	}
	if task.TargetLeadID != nil {
		payload.LeadID = task.TargetLeadID.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("workflow executor returned status %d", resp.StatusCode)
	}
	return nil
}

type noopExecutor struct{}

func (noopExecutor) Dispatch(context.Context, repository.AutomatedTask) error { return nil }
