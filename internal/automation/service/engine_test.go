package service

import (
	"context"
	"testing"
	"time"

	"leadflow_backend/internal/automation/repository"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRuleRepo struct {
	rules []repository.Rule
}

func (f *fakeRuleRepo) Create(_ context.Context, params repository.CreateRuleParams) (repository.Rule, error) {
	rule := repository.Rule{
		ID:            uuid.New(),
		Name:          params.Name,
		Trigger:       params.Trigger,
		Conditions:    params.Conditions,
		Actions:       params.Actions,
		IsActive:      params.IsActive,
		AssignedAgent: params.AssignedAgent,
		CreatedAt:     time.Now(),
	}
	f.rules = append(f.rules, rule)
	return rule, nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Rule, error) {
	for _, rule := range f.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return repository.Rule{}, repository.ErrNotFound
}

func (f *fakeRuleRepo) List(_ context.Context) ([]repository.Rule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) ListActiveByTrigger(_ context.Context, trigger string) ([]repository.Rule, error) {
	var out []repository.Rule
	for _, rule := range f.rules {
		if rule.IsActive && rule.Trigger == trigger {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Update(_ context.Context, id uuid.UUID, _ repository.UpdateRuleParams) (repository.Rule, error) {
	return f.GetByID(context.Background(), id)
}

func (f *fakeRuleRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type fakeLeadGateway struct {
	fields     map[string]interface{}
	reassigned []string
}

func (f *fakeLeadGateway) Fields(_ context.Context, _ uuid.UUID) (map[string]interface{}, error) {
	return f.fields, nil
}

func (f *fakeLeadGateway) Reassign(_ context.Context, _ uuid.UUID, agent string) error {
	f.reassigned = append(f.reassigned, agent)
	return nil
}

type fakeTaskGateway struct {
	fields     map[string]interface{}
	scheduled  []TaskParams
	priorities []string
	reassigned []string
	log        *[]string
}

func (f *fakeTaskGateway) Fields(_ context.Context, _ uuid.UUID) (map[string]interface{}, error) {
	return f.fields, nil
}

func (f *fakeTaskGateway) Schedule(_ context.Context, params TaskParams) error {
	f.scheduled = append(f.scheduled, params)
	if f.log != nil {
		*f.log = append(*f.log, "create_task")
	}
	return nil
}

func (f *fakeTaskGateway) SetPriority(_ context.Context, _ uuid.UUID, priority string) error {
	f.priorities = append(f.priorities, priority)
	if f.log != nil {
		*f.log = append(*f.log, "set_priority")
	}
	return nil
}

func (f *fakeTaskGateway) Reassign(_ context.Context, _ uuid.UUID, agent string) error {
	f.reassigned = append(f.reassigned, agent)
	return nil
}

type fakeNotifier struct {
	messages []string
	log      *[]string
}

func (f *fakeNotifier) Notify(_ context.Context, message string, _, _ *uuid.UUID) error {
	f.messages = append(f.messages, message)
	if f.log != nil {
		*f.log = append(*f.log, "notify")
	}
	return nil
}

func addRule(t *testing.T, repo *fakeRuleRepo, rule repository.Rule) repository.Rule {
	t.Helper()
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now()
	repo.rules = append(repo.rules, rule)
	return rule
}

// A high-budget lead fires the rule; a low-budget one does not.
func TestBudgetRuleFiresOnlyAboveThreshold(t *testing.T) {
	repo := &fakeRuleRepo{}
	addRule(t, repo, repository.Rule{
		Name:       "Luxury buyer follow-up",
		Trigger:    "lead.created",
		Conditions: []string{"budget_max > 5000000"},
		Actions:    []repository.Action{{Type: ActionCreateTask}},
		IsActive:   true,
	})

	tasks := &fakeTaskGateway{}
	leadID := uuid.New()

	leads := &fakeLeadGateway{fields: map[string]interface{}{"budget_max": int64(6_000_000)}}
	engine := NewEngine(repo, leads, tasks, &fakeNotifier{}, nil)
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "lead.created", LeadID: &leadID}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(tasks.scheduled) != 1 {
		t.Fatalf("budget 6M: %d tasks scheduled, want exactly 1", len(tasks.scheduled))
	}

	leads.fields = map[string]interface{}{"budget_max": int64(1_000_000)}
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "lead.created", LeadID: &leadID}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(tasks.scheduled) != 1 {
		t.Errorf("budget 1M: %d tasks scheduled, want still 1", len(tasks.scheduled))
	}
}

func TestMalformedConditionSkipsOnlyThatRule(t *testing.T) {
	repo := &fakeRuleRepo{}
	addRule(t, repo, repository.Rule{
		Name:       "Broken rule",
		Trigger:    "lead.created",
		Conditions: []string{"budget_max >"},
		Actions:    []repository.Action{{Type: ActionCreateTask}},
		IsActive:   true,
	})
	addRule(t, repo, repository.Rule{
		Name:     "Healthy rule",
		Trigger:  "lead.created",
		Actions:  []repository.Action{{Type: ActionCreateTask, TaskName: "Welcome call"}},
		IsActive: true,
	})

	tasks := &fakeTaskGateway{}
	leads := &fakeLeadGateway{fields: map[string]interface{}{"budget_max": int64(9_000_000)}}
	engine := NewEngine(repo, leads, tasks, &fakeNotifier{}, nil)

	leadID := uuid.New()
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "lead.created", LeadID: &leadID}); err != nil {
		t.Fatalf("HandleEvent must not fail the pass: %v", err)
	}
	if len(tasks.scheduled) != 1 || tasks.scheduled[0].Name != "Welcome call" {
		t.Errorf("only the healthy rule should fire, scheduled = %+v", tasks.scheduled)
	}
}

func TestActionsRunInDeclaredOrder(t *testing.T) {
	var order []string
	repo := &fakeRuleRepo{}
	addRule(t, repo, repository.Rule{
		Name:    "Escalate stuck task",
		Trigger: "task.completed",
		Actions: []repository.Action{
			{Type: ActionNotify, Message: "task done"},
			{Type: ActionSetPriority, Priority: "high"},
			{Type: ActionCreateTask, TaskName: "Next step"},
		},
		IsActive: true,
	})

	tasks := &fakeTaskGateway{log: &order}
	notifier := &fakeNotifier{log: &order}
	engine := NewEngine(repo, &fakeLeadGateway{}, tasks, notifier, nil)

	taskID := uuid.New()
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "task.completed", TaskID: &taskID}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	want := []string{"notify", "set_priority", "create_task"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestCreateTaskActionAppliesDefaultsAndDelay(t *testing.T) {
	repo := &fakeRuleRepo{}
	addRule(t, repo, repository.Rule{
		Name:          "Welcome sequence",
		Trigger:       "lead.created",
		Actions:       []repository.Action{{Type: ActionCreateTask, DelayMinutes: 15}},
		IsActive:      true,
		AssignedAgent: "Sara",
	})

	tasks := &fakeTaskGateway{}
	engine := NewEngine(repo, &fakeLeadGateway{}, tasks, &fakeNotifier{}, nil)
	now := time.Now()
	engine.now = func() time.Time { return now }

	leadID := uuid.New()
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "lead.created", LeadID: &leadID}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(tasks.scheduled) != 1 {
		t.Fatalf("scheduled = %d, want 1", len(tasks.scheduled))
	}

	got := tasks.scheduled[0]
	if got.Name != "Welcome sequence" || got.Type != defaultTaskType || got.Priority != defaultTaskPriority {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.AssignedAgent != "Sara" {
		t.Errorf("agent = %q, want rule's agent", got.AssignedAgent)
	}
	if got.LeadID == nil || *got.LeadID != leadID {
		t.Error("scheduled task must target the event's lead")
	}
	if !got.ScheduledAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("scheduledAt = %v, want now+15m", got.ScheduledAt)
	}
}

func TestReassignPrefersLeadOverTask(t *testing.T) {
	repo := &fakeRuleRepo{}
	addRule(t, repo, repository.Rule{
		Name:     "Route to closer",
		Trigger:  "lead.updated",
		Actions:  []repository.Action{{Type: ActionReassign, AssignedAgent: "Omar"}},
		IsActive: true,
	})

	leads := &fakeLeadGateway{}
	tasks := &fakeTaskGateway{}
	engine := NewEngine(repo, leads, tasks, &fakeNotifier{}, nil)

	leadID, taskID := uuid.New(), uuid.New()
	if err := engine.HandleEvent(context.Background(), TriggerEvent{Trigger: "lead.updated", LeadID: &leadID, TaskID: &taskID}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(leads.reassigned) != 1 || leads.reassigned[0] != "Omar" {
		t.Errorf("lead reassignments = %v, want [Omar]", leads.reassigned)
	}
	if len(tasks.reassigned) != 0 {
		t.Errorf("task must not be reassigned when a lead is present")
	}
}

func TestCreateRuleValidation(t *testing.T) {
	engine := NewEngine(&fakeRuleRepo{}, &fakeLeadGateway{}, &fakeTaskGateway{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	if _, err := engine.CreateRule(ctx, repository.CreateRuleParams{
		Name:       "bad condition",
		Trigger:    "lead.created",
		Conditions: []string{"budget_max >"},
	}); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("malformed condition: kind = %v, want validation", apperr.GetKind(err))
	}

	if _, err := engine.CreateRule(ctx, repository.CreateRuleParams{
		Name:    "bad action",
		Trigger: "lead.created",
		Actions: []repository.Action{{Type: "delete_lead"}},
	}); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("unknown action: kind = %v, want validation", apperr.GetKind(err))
	}

	if _, err := engine.CreateRule(ctx, repository.CreateRuleParams{
		Name:       "good",
		Trigger:    "lead.created",
		Conditions: []string{"score >= 80"},
		Actions:    []repository.Action{{Type: ActionNotify, Message: "hot lead"}},
		IsActive:   true,
	}); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}
}
