package webhook

import (
	"net/http"

	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/internal/tasks/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Callback statuses accepted from the workflow engine.
const (
	callbackCompleted = "completed"
	callbackFailed    = "failed"
)

// CallbackRequest is the workflow engine's outcome report. The task is
// resolved by taskId when present, otherwise by the opaque workflowId the
// engine was handed at dispatch.
type CallbackRequest struct {
	TaskID                string `json:"taskId,omitempty"`
	WorkflowID            string `json:"workflowId,omitempty"`
	Status                string `json:"status" validate:"required,oneof=completed failed"`
	ActualDurationMinutes int    `json:"actualDurationMinutes,omitempty" validate:"min=0"`
	Error                 string `json:"error,omitempty" validate:"max=2000"`
}

type Handler struct {
	tasks *service.Service
	val   *validator.Validator
	log   *logger.Logger
}

func NewHandler(tasks *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{tasks: tasks, val: val, log: log}
}

// HandleWorkflowCallback translates the provider callback into the only two
// ingress operations the task scheduler exposes to the engine: Complete and
// Fail.
func (h *Handler) HandleWorkflowCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if req.TaskID == "" && req.WorkflowID == "" {
		httpkit.Error(c, http.StatusBadRequest, "taskId or workflowId is required", nil)
		return
	}

	ctx := c.Request.Context()

	taskID, err := h.resolveTaskID(c, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	h.log.Info("workflow callback received", "taskId", taskID, "status", req.Status)

	switch req.Status {
	case callbackCompleted:
		task, err := h.tasks.Complete(ctx, taskID, req.ActualDurationMinutes)
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.OK(c, transport.ToTaskResponse(task))
	case callbackFailed:
		message := req.Error
		if message == "" {
			message = "workflow execution failed"
		}
		task, err := h.tasks.Fail(ctx, taskID, message)
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.OK(c, transport.ToTaskResponse(task))
	}
}

func (h *Handler) resolveTaskID(c *gin.Context, req CallbackRequest) (uuid.UUID, error) {
	if req.TaskID != "" {
		id, err := uuid.Parse(req.TaskID)
		if err != nil {
			return uuid.Nil, apperr.BadRequest("invalid task id")
		}
		return id, nil
	}
	task, err := h.tasks.GetByWorkflowID(c.Request.Context(), req.WorkflowID)
	if err != nil {
		return uuid.Nil, err
	}
	return task.ID, nil
}
