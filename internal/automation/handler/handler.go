package handler

import (
	"net/http"

	"leadflow_backend/internal/automation/repository"
	"leadflow_backend/internal/automation/service"
	"leadflow_backend/internal/automation/transport"
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
	engine *service.Engine
	val    *validator.Validator
}

func New(engine *service.Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

// RegisterRuleRoutes mounts the rule CRUD endpoints.
func (h *Handler) RegisterRuleRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListRules)
	rg.POST("", h.CreateRule)
	rg.GET("/:id", h.GetRule)
	rg.PUT("/:id", h.UpdateRule)
	rg.DELETE("/:id", h.DeleteRule)
}

// RegisterEventRoutes mounts the generic event ingress.
func (h *Handler) RegisterEventRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.IngestEvent)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req transport.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rule, err := h.engine.CreateRule(c.Request.Context(), repository.CreateRuleParams{
		Name:          req.Name,
		Trigger:       req.Trigger,
		Conditions:    req.Conditions,
		Actions:       transport.ToActions(req.Actions),
		IsActive:      req.IsActive,
		AssignedAgent: req.AssignedAgent,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToRuleResponse(rule))
}

func (h *Handler) GetRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rule, err := h.engine.GetRule(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToRuleResponse(rule))
}

func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.engine.ListRules(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.ToRuleResponses(rules))
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), id, repository.UpdateRuleParams{
		Name:          req.Name,
		Trigger:       req.Trigger,
		Conditions:    req.Conditions,
		Actions:       transport.ToActions(req.Actions),
		IsActive:      req.IsActive,
		AssignedAgent: req.AssignedAgent,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToRuleResponse(rule))
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.engine.DeleteRule(c.Request.Context(), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) IngestEvent(c *gin.Context) {
	var req transport.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.engine.HandleEvent(c.Request.Context(), service.TriggerEvent{
		Trigger: req.Type,
		LeadID:  req.LeadID,
		TaskID:  req.TaskID,
		Payload: req.Payload,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}
