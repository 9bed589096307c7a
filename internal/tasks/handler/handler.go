package handler

import (
	"net/http"

	"leadflow_backend/internal/query"
	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/internal/tasks/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/fail", h.Fail)
	rg.POST("/:id/pause", h.Pause)
	rg.POST("/:id/resume", h.Resume)
	rg.POST("/:id/retry", h.Retry)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	params := service.ScheduleParams{
		Name:                     req.Name,
		Description:              req.Description,
		Type:                     req.Type,
		Priority:                 req.Priority,
		AssignedAgent:            req.AssignedAgent,
		TargetLeadID:             req.LeadID,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		MaxRetries:               req.MaxRetries,
		Metadata:                 req.Metadata,
	}
	if req.ScheduledAt != nil {
		params.ScheduledAt = *req.ScheduledAt
	}

	task, err := h.svc.Schedule(c.Request.Context(), params)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToTaskResponse(task))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	task, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToTaskResponse(task))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	sortKey := req.SortBy
	if sortKey == "" {
		sortKey = query.KeyDate
	}
	sortDir := req.SortOrder
	if sortDir == "" {
		sortDir = query.DirDesc
	}

	tasks, err := h.svc.List(c.Request.Context(), query.TaskFilter{
		Statuses:   req.Status,
		Types:      req.Type,
		Priorities: req.Priority,
		Agent:      req.Agent,
		Search:     req.Search,
	}, sortKey, sortDir)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToTaskResponses(tasks))
}

func (h *Handler) Start(c *gin.Context) {
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.Start(c.Request.Context(), id)
		return transport.ToTaskResponse(task), err
	})
}

func (h *Handler) Complete(c *gin.Context) {
	var req transport.CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.Complete(c.Request.Context(), id, req.ActualDurationMinutes)
		return transport.ToTaskResponse(task), err
	})
}

func (h *Handler) Fail(c *gin.Context) {
	var req transport.FailTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.Fail(c.Request.Context(), id, req.Error)
		return transport.ToTaskResponse(task), err
	})
}

func (h *Handler) Pause(c *gin.Context) {
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.Pause(c.Request.Context(), id)
		return transport.ToTaskResponse(task), err
	})
}

func (h *Handler) Resume(c *gin.Context) {
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.Resume(c.Request.Context(), id)
		return transport.ToTaskResponse(task), err
	})
}

func (h *Handler) Retry(c *gin.Context) {
	var req transport.RetryTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	h.mutate(c, func(id uuid.UUID) (interface{}, error) {
		task, err := h.svc.ManualRetry(c.Request.Context(), id, req.Override)
		return transport.ToTaskResponse(task), err
	})
}

// mutate parses the id parameter and renders the outcome of a single-task
// operation.
func (h *Handler) mutate(c *gin.Context, op func(id uuid.UUID) (interface{}, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	payload, err := op(id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, payload)
}
