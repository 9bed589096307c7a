package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no rule matches the given id.
var ErrNotFound = errors.New("automation rule not found")

// Action is one step of a rule's action list, executed in declared order.
type Action struct {
	Type                     string            `json:"type"`
	TaskName                 string            `json:"taskName,omitempty"`
	TaskType                 string            `json:"taskType,omitempty"`
	Priority                 string            `json:"priority,omitempty"`
	AssignedAgent            string            `json:"assignedAgent,omitempty"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes,omitempty"`
	MaxRetries               int               `json:"maxRetries,omitempty"`
	DelayMinutes             int               `json:"delayMinutes,omitempty"`
	Message                  string            `json:"message,omitempty"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
}

// Rule is a declarative trigger → conditions → actions binding.
type Rule struct {
	ID            uuid.UUID
	Name          string
	Trigger       string
	Conditions    []string
	Actions       []Action
	IsActive      bool
	AssignedAgent string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateRuleParams holds the fields for inserting a new rule.
type CreateRuleParams struct {
	Name          string
	Trigger       string
	Conditions    []string
	Actions       []Action
	IsActive      bool
	AssignedAgent string
}

// UpdateRuleParams holds the mutable rule fields. Nil pointers leave the
// current value untouched.
type UpdateRuleParams struct {
	Name          *string
	Trigger       *string
	Conditions    []string
	Actions       []Action
	IsActive      *bool
	AssignedAgent *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `
	id, name, trigger, conditions, actions, is_active, assigned_agent,
	created_at, updated_at
`

func scanRule(row pgx.Row) (Rule, error) {
	var rule Rule
	var conditions, actions []byte
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Trigger, &conditions, &actions,
		&rule.IsActive, &rule.AssignedAgent, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return rule, err
	}
	rule.Conditions = []string{}
	rule.Actions = []Action{}
	if len(conditions) > 0 {
		_ = json.Unmarshal(conditions, &rule.Conditions)
	}
	if len(actions) > 0 {
		_ = json.Unmarshal(actions, &rule.Actions)
	}
	return rule, nil
}

// Create inserts a new automation rule.
func (r *Repository) Create(ctx context.Context, params CreateRuleParams) (Rule, error) {
	conditions, err := json.Marshal(orEmptyStrings(params.Conditions))
	if err != nil {
		return Rule{}, err
	}
	actions, err := json.Marshal(orEmptyActions(params.Actions))
	if err != nil {
		return Rule{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO automation_rules (name, trigger, conditions, actions, is_active, assigned_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ruleColumns,
		params.Name, params.Trigger, conditions, actions, params.IsActive, params.AssignedAgent,
	)
	return scanRule(row)
}

// GetByID returns the rule with the given id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Rule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrNotFound
	}
	return rule, err
}

// List returns all rules, newest first.
func (r *Repository) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ruleColumns+` FROM automation_rules ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListActiveByTrigger returns active rules bound to the given event type, in
// creation order so action execution is deterministic across rules.
func (r *Repository) ListActiveByTrigger(ctx context.Context, trigger string) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE trigger = $1 AND is_active = true
		ORDER BY created_at ASC
	`, trigger)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// Update applies the non-nil fields and returns the stored rule.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateRuleParams) (Rule, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Rule{}, err
	}

	if params.Name != nil {
		current.Name = *params.Name
	}
	if params.Trigger != nil {
		current.Trigger = *params.Trigger
	}
	if params.Conditions != nil {
		current.Conditions = params.Conditions
	}
	if params.Actions != nil {
		current.Actions = params.Actions
	}
	if params.IsActive != nil {
		current.IsActive = *params.IsActive
	}
	if params.AssignedAgent != nil {
		current.AssignedAgent = *params.AssignedAgent
	}

	conditions, err := json.Marshal(orEmptyStrings(current.Conditions))
	if err != nil {
		return Rule{}, err
	}
	actions, err := json.Marshal(orEmptyActions(current.Actions))
	if err != nil {
		return Rule{}, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE automation_rules
		SET name = $2, trigger = $3, conditions = $4, actions = $5,
			is_active = $6, assigned_agent = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		id, current.Name, current.Trigger, conditions, actions,
		current.IsActive, current.AssignedAgent,
	)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrNotFound
	}
	return rule, err
}

// Delete removes a rule.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func orEmptyStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func orEmptyActions(values []Action) []Action {
	if values == nil {
		return []Action{}
	}
	return values
}
