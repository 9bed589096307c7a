// Package transport defines the request/response DTOs for the leads module.
package transport

import (
	"time"

	"leadflow_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=200"`
	Phone            string `json:"phone" validate:"required,min=5,max=20"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Source           string `json:"source" validate:"required,oneof=whatsapp website bayut property_finder referral"`
	Score            int    `json:"score" validate:"min=0,max=100"`
	BudgetMin        *int64 `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax        *int64 `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	Location         string `json:"location,omitempty" validate:"max=200"`
	PropertyInterest string `json:"propertyInterest,omitempty" validate:"max=200"`
	AssignedAgent    string `json:"assignedAgent,omitempty" validate:"max=100"`
}

type UpdateLeadRequest struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Score            *int    `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	BudgetMin        *int64  `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax        *int64  `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	Location         *string `json:"location,omitempty" validate:"omitempty,max=200"`
	PropertyInterest *string `json:"propertyInterest,omitempty" validate:"omitempty,max=200"`
	AssignedAgent    *string `json:"assignedAgent,omitempty" validate:"omitempty,max=100"`
}

type TransitionLeadRequest struct {
	Status     string `json:"status" validate:"required,oneof=new contacted qualified interested viewing_scheduled negotiating closed_won closed_lost"`
	Correction bool   `json:"correction"`
}

type ListLeadsRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=new contacted qualified interested viewing_scheduled negotiating closed_won closed_lost"`
	Search    string `form:"search" validate:"max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=score date status"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type UpdateStageConfigRequest struct {
	ConversionRate     float64 `json:"conversionRate" validate:"min=0,max=1"`
	AverageTimeInStage float64 `json:"averageTimeInStage" validate:"min=0"`
}

// Response DTOs
type LeadResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            *string   `json:"email,omitempty"`
	Source           string    `json:"source"`
	Score            int       `json:"score"`
	Status           string    `json:"status"`
	BudgetMin        *int64    `json:"budgetMin,omitempty"`
	BudgetMax        *int64    `json:"budgetMax,omitempty"`
	Location         string    `json:"location,omitempty"`
	PropertyInterest string    `json:"propertyInterest,omitempty"`
	AssignedAgent    string    `json:"assignedAgent,omitempty"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// StageSnapshotEntry is one funnel stage with its per-snapshot aggregates and
// configured reporting figures.
type StageSnapshotEntry struct {
	Stage              string  `json:"stage"`
	Position           int     `json:"position"`
	LeadCount          int     `json:"leadCount"`
	TotalValue         int64   `json:"totalValue"`
	ConversionRate     float64 `json:"conversionRate"`
	AverageTimeInStage float64 `json:"averageTimeInStage"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID,
		Name:             lead.Name,
		Phone:            lead.Phone,
		Email:            lead.Email,
		Source:           lead.Source,
		Score:            lead.Score,
		Status:           lead.Status,
		BudgetMin:        lead.BudgetMin,
		BudgetMax:        lead.BudgetMax,
		Location:         lead.Location,
		PropertyInterest: lead.PropertyInterest,
		AssignedAgent:    lead.AssignedAgent,
		Version:          lead.Version,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, len(leads))
	for i, lead := range leads {
		out[i] = ToLeadResponse(lead)
	}
	return out
}
