package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository with the same CAS semantics as the
// postgres implementation.
type fakeRepo struct {
	mu    sync.Mutex
	leads map[uuid.UUID]repository.Lead

	conflictNext int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	lead := repository.Lead{
		ID:               uuid.New(),
		Name:             params.Name,
		Phone:            params.Phone,
		Email:            params.Email,
		Source:           params.Source,
		Score:            params.Score,
		Status:           params.Status,
		BudgetMin:        params.BudgetMin,
		BudgetMax:        params.BudgetMax,
		Location:         params.Location,
		PropertyInterest: params.PropertyInterest,
		AssignedAgent:    params.AssignedAgent,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		out = append(out, lead)
	}
	return out, nil
}

func (f *fakeRepo) UpdateCAS(_ context.Context, lead repository.Lead) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.leads[lead.ID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if f.conflictNext > 0 {
		f.conflictNext--
		current.Version++
		f.leads[lead.ID] = current
		return repository.Lead{}, repository.ErrVersionConflict
	}
	if current.Version != lead.Version {
		return repository.Lead{}, repository.ErrVersionConflict
	}
	lead.Version++
	lead.UpdatedAt = time.Now()
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) ListStageConfigs(_ context.Context) ([]repository.StageConfig, error) {
	configs := make([]repository.StageConfig, len(domain.PipelineOrder))
	for i, stage := range domain.PipelineOrder {
		configs[i] = repository.StageConfig{Stage: stage, Position: i, ConversionRate: 0.5}
	}
	return configs, nil
}

func (f *fakeRepo) UpdateStageConfig(_ context.Context, stage string, conversionRate, averageTimeInStage float64) (repository.StageConfig, error) {
	return repository.StageConfig{Stage: stage, ConversionRate: conversionRate, AverageTimeInStage: averageTimeInStage}, nil
}

func createLead(t *testing.T, svc *Service) repository.Lead {
	t.Helper()
	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name:   "Ahmed Hassan",
		Phone:  "+971501234567",
		Source: domain.SourceWhatsApp,
		Score:  60,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return lead
}

func TestCreateStartsInNewStage(t *testing.T) {
	svc := New(newFakeRepo(), nil, nil)
	lead := createLead(t, svc)

	if lead.Status != domain.StatusNew {
		t.Errorf("status = %q, want new", lead.Status)
	}
	if lead.Phone != "+971501234567" {
		t.Errorf("phone = %q, want normalized E.164", lead.Phone)
	}
}

func TestCreateRejectsUnknownSourceAndInvertedBudget(t *testing.T) {
	svc := New(newFakeRepo(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, transport.CreateLeadRequest{Name: "x", Phone: "+971501234567", Source: "craigslist"}); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("unknown source: kind = %v, want validation", apperr.GetKind(err))
	}

	low, high := int64(1_000_000), int64(500_000)
	if _, err := svc.Create(ctx, transport.CreateLeadRequest{
		Name: "x", Phone: "+971501234567", Source: domain.SourceWebsite,
		BudgetMin: &low, BudgetMax: &high,
	}); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("inverted budget: kind = %v, want validation", apperr.GetKind(err))
	}
}

// Forward moves may skip stages; backward moves need the correction flag.
func TestTransitionForwardSkipAndBackwardCorrection(t *testing.T) {
	svc := New(newFakeRepo(), nil, nil)
	ctx := context.Background()
	lead := createLead(t, svc)

	moved, err := svc.Transition(ctx, lead.ID, domain.StatusNegotiating, false)
	if err != nil {
		t.Fatalf("forward skip new -> negotiating should succeed: %v", err)
	}
	if moved.Status != domain.StatusNegotiating {
		t.Fatalf("status = %q, want negotiating", moved.Status)
	}

	if _, err := svc.Transition(ctx, lead.ID, domain.StatusContacted, false); apperr.GetKind(err) != apperr.KindInvalidTransition {
		t.Fatalf("backward without correction: kind = %v, want invalid_transition", apperr.GetKind(err))
	}

	corrected, err := svc.Transition(ctx, lead.ID, domain.StatusContacted, true)
	if err != nil {
		t.Fatalf("backward with correction should succeed: %v", err)
	}
	if corrected.Status != domain.StatusContacted {
		t.Errorf("status = %q, want contacted", corrected.Status)
	}
}

func TestTransitionUnknownLead(t *testing.T) {
	svc := New(newFakeRepo(), nil, nil)
	if _, err := svc.Transition(context.Background(), uuid.New(), domain.StatusContacted, false); apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want not_found", apperr.GetKind(err))
	}
}

func TestUpdateSurvivesVersionConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil, nil)
	ctx := context.Background()
	lead := createLead(t, svc)

	repo.conflictNext = 2
	score := 85
	updated, err := svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{Score: &score})
	if err != nil {
		t.Fatalf("Update should survive two conflicts: %v", err)
	}
	if updated.Score != 85 {
		t.Errorf("score = %d, want 85", updated.Score)
	}

	repo.conflictNext = casRetries
	if _, err := svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{Score: &score}); apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestStageSnapshotMergesConfiguredFigures(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, nil, nil)
	ctx := context.Background()

	budget := int64(2_500_000)
	if _, err := svc.Create(ctx, transport.CreateLeadRequest{
		Name: "Fatima", Phone: "+971509876543", Source: domain.SourceBayut, BudgetMax: &budget,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := svc.StageSnapshot(ctx)
	if err != nil {
		t.Fatalf("StageSnapshot: %v", err)
	}
	if len(entries) != len(domain.PipelineOrder) {
		t.Fatalf("entries = %d, want every stage present", len(entries))
	}

	first := entries[0]
	if first.Stage != domain.StatusNew || first.LeadCount != 1 || first.TotalValue != budget {
		t.Errorf("new stage = %+v, want 1 lead worth %d", first, budget)
	}
	if first.ConversionRate != 0.5 {
		t.Errorf("conversion rate not merged from config: %v", first.ConversionRate)
	}
}
