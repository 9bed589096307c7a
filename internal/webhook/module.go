// Package webhook provides the workflow-executor callback ingress module.
package webhook

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	apiKey  string
}

// NewModule creates and initializes the webhook module.
func NewModule(tasks *service.Service, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(tasks, val, log),
		apiKey:  cfg.GetWebhookAPIKey(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhooks")
	group.Use(APIKeyAuthMiddleware(m.apiKey))
	group.POST("/workflow", m.handler.HandleWorkflowCallback)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
