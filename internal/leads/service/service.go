// Package service implements lead management and the pipeline stage manager.
package service

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/query"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
)

// casRetries bounds the read-apply-write retry loop on optimistic write
// conflicts before surfacing a conflict to the caller.
const casRetries = 3

// Repository defines the data access interface needed by the service.
type Repository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context) ([]repository.Lead, error)
	UpdateCAS(ctx context.Context, lead repository.Lead) (repository.Lead, error)
	ListStageConfigs(ctx context.Context) ([]repository.StageConfig, error)
	UpdateStageConfig(ctx context.Context, stage string, conversionRate, averageTimeInStage float64) (repository.StageConfig, error)
}

// Service owns lead records and is the only component allowed to move a lead
// between pipeline stages.
type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Create registers a new lead in the `new` stage. The phone number is
// normalized to E.164 so duplicate detection and WhatsApp automations see one
// canonical form.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (repository.Lead, error) {
	if !domain.IsKnownSource(req.Source) {
		return repository.Lead{}, apperr.Validation("unknown lead source: " + req.Source)
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMin > *req.BudgetMax {
		return repository.Lead{}, apperr.Validation("budget_min must not exceed budget_max")
	}

	var email *string
	if req.Email != "" {
		email = &req.Email
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:             req.Name,
		Phone:            phone.NormalizeE164(req.Phone),
		Email:            email,
		Source:           req.Source,
		Score:            req.Score,
		Status:           domain.StatusNew,
		BudgetMin:        req.BudgetMin,
		BudgetMax:        req.BudgetMax,
		Location:         req.Location,
		PropertyInterest: req.PropertyInterest,
		AssignedAgent:    req.AssignedAgent,
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.publish(ctx, events.LeadCreated{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID})
	return lead, nil
}

// GetByID returns a single lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// List returns leads matching the filter, sorted.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) ([]repository.Lead, error) {
	leads, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads = query.FilterLeads(leads, query.LeadFilter{Status: req.Status, Search: req.Search})

	sortKey := req.SortBy
	if sortKey == "" {
		sortKey = query.KeyDate
	}
	sortDir := req.SortOrder
	if sortDir == "" {
		sortDir = query.DirDesc
	}
	query.SortLeads(leads, sortKey, sortDir)
	return leads, nil
}

// Update applies the non-nil fields. Stage changes go through Transition, not
// here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (repository.Lead, error) {
	lead, err := s.modify(ctx, id, func(lead *repository.Lead) error {
		if req.Name != nil {
			lead.Name = *req.Name
		}
		if req.Phone != nil {
			lead.Phone = phone.NormalizeE164(*req.Phone)
		}
		if req.Email != nil {
			lead.Email = req.Email
		}
		if req.Score != nil {
			lead.Score = *req.Score
		}
		if req.BudgetMin != nil {
			lead.BudgetMin = req.BudgetMin
		}
		if req.BudgetMax != nil {
			lead.BudgetMax = req.BudgetMax
		}
		if lead.BudgetMin != nil && lead.BudgetMax != nil && *lead.BudgetMin > *lead.BudgetMax {
			return apperr.Validation("budget_min must not exceed budget_max")
		}
		if req.Location != nil {
			lead.Location = *req.Location
		}
		if req.PropertyInterest != nil {
			lead.PropertyInterest = *req.PropertyInterest
		}
		if req.AssignedAgent != nil {
			lead.AssignedAgent = *req.AssignedAgent
		}
		return nil
	})
	if err != nil {
		return lead, err
	}

	s.publish(ctx, events.LeadUpdated{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID})
	return lead, nil
}

// Reassign hands the lead to another agent. Used by automation rule actions.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, agent string) (repository.Lead, error) {
	return s.Update(ctx, id, transport.UpdateLeadRequest{AssignedAgent: &agent})
}

// Transition moves a lead to another pipeline stage. Forward moves may skip
// stages; backward moves require the correction flag.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, toStatus string, correction bool) (repository.Lead, error) {
	var from string
	lead, err := s.modify(ctx, id, func(lead *repository.Lead) error {
		from = lead.Status
		if !domain.CanTransition(lead.Status, toStatus, correction) {
			return apperr.InvalidTransition(fmt.Sprintf("cannot move lead from %s to %s", lead.Status, toStatus))
		}
		lead.Status = toStatus
		return nil
	})
	if err != nil {
		return lead, err
	}

	s.publish(ctx, events.LeadStageChanged{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		From:       from,
		To:         lead.Status,
		Correction: correction,
	})
	return lead, nil
}

// StageSnapshot aggregates the current funnel: per-stage lead count and total
// value, merged with the configured reporting figures.
func (s *Service) StageSnapshot(ctx context.Context) ([]transport.StageSnapshotEntry, error) {
	leads, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	projections := make([]domain.StageLead, len(leads))
	for i, lead := range leads {
		projections[i] = domain.StageLead{Status: lead.Status, BudgetMin: lead.BudgetMin, BudgetMax: lead.BudgetMax}
	}
	aggregates := domain.ComputeStageSnapshot(projections)

	configs, err := s.repo.ListStageConfigs(ctx)
	if err != nil {
		return nil, err
	}
	configByStage := make(map[string]repository.StageConfig, len(configs))
	for _, cfg := range configs {
		configByStage[cfg.Stage] = cfg
	}

	entries := make([]transport.StageSnapshotEntry, len(aggregates))
	for i, agg := range aggregates {
		cfg := configByStage[agg.Stage]
		entries[i] = transport.StageSnapshotEntry{
			Stage:              agg.Stage,
			Position:           cfg.Position,
			LeadCount:          agg.LeadCount,
			TotalValue:         agg.TotalValue,
			ConversionRate:     cfg.ConversionRate,
			AverageTimeInStage: cfg.AverageTimeInStage,
		}
	}
	return entries, nil
}

// UpdateStageConfig overwrites the configured reporting figures for a stage.
func (s *Service) UpdateStageConfig(ctx context.Context, stage string, req transport.UpdateStageConfigRequest) (repository.StageConfig, error) {
	if !domain.IsKnownStatus(stage) {
		return repository.StageConfig{}, apperr.Validation("unknown pipeline stage: " + stage)
	}
	cfg, err := s.repo.UpdateStageConfig(ctx, stage, req.ConversionRate, req.AverageTimeInStage)
	if errors.Is(err, repository.ErrStageNotFound) {
		return repository.StageConfig{}, apperr.NotFound("pipeline stage not found")
	}
	return cfg, err
}

// modify runs a read-apply-write loop with a bounded retry on optimistic
// write conflicts.
func (s *Service) modify(ctx context.Context, id uuid.UUID, apply func(*repository.Lead) error) (repository.Lead, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		lead, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		if err != nil {
			return repository.Lead{}, err
		}

		if err := apply(&lead); err != nil {
			return repository.Lead{}, err
		}

		updated, err := s.repo.UpdateCAS(ctx, lead)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return repository.Lead{}, err
		}
		return updated, nil
	}

	return repository.Lead{}, apperr.Conflict("lead was modified concurrently, retry the operation")
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
