package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no lead matches the given id.
	ErrNotFound = errors.New("lead not found")
	// ErrVersionConflict is returned when a compare-and-swap update loses the
	// race against a concurrent writer. Callers reload and retry.
	ErrVersionConflict = errors.New("lead version conflict")
)

// Lead is a prospective client tracked through the sales pipeline.
// Leads are never hard-deleted; closed_won/closed_lost are terminal but the
// record is retained.
type Lead struct {
	ID               uuid.UUID
	Name             string
	Phone            string
	Email            *string
	Source           string
	Score            int
	Status           string
	BudgetMin        *int64
	BudgetMax        *int64
	Location         string
	PropertyInterest string
	AssignedAgent    string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateLeadParams holds the fields for inserting a new lead.
type CreateLeadParams struct {
	Name             string
	Phone            string
	Email            *string
	Source           string
	Score            int
	Status           string
	BudgetMin        *int64
	BudgetMax        *int64
	Location         string
	PropertyInterest string
	AssignedAgent    string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, name, phone, email, source, score, status,
	budget_min, budget_max, location, property_interest,
	assigned_agent, version, created_at, updated_at
`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Score, &l.Status,
		&l.BudgetMin, &l.BudgetMax, &l.Location, &l.PropertyInterest,
		&l.AssignedAgent, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create inserts a new lead and returns the stored record.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, phone, email, source, score, status,
			budget_min, budget_max, location, property_interest, assigned_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Source, params.Score,
		params.Status, params.BudgetMin, params.BudgetMax, params.Location,
		params.PropertyInterest, params.AssignedAgent,
	)
	return scanLead(row)
}

// GetByID returns the lead with the given id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// List returns all leads, newest first.
func (r *Repository) List(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateCAS writes the lead back with a compare-and-swap on the version
// column. The single-writer-per-entity discipline hangs on this check: a lost
// race returns ErrVersionConflict and the caller repeats its read-apply-write
// loop.
func (r *Repository) UpdateCAS(ctx context.Context, lead Lead) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			name = $3, phone = $4, email = $5, source = $6, score = $7,
			status = $8, budget_min = $9, budget_max = $10, location = $11,
			property_interest = $12, assigned_agent = $13,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+leadColumns,
		lead.ID, lead.Version,
		lead.Name, lead.Phone, lead.Email, lead.Source, lead.Score,
		lead.Status, lead.BudgetMin, lead.BudgetMax, lead.Location,
		lead.PropertyInterest, lead.AssignedAgent,
	)
	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the lead is gone or the version moved underneath us.
		if _, getErr := r.GetByID(ctx, lead.ID); getErr != nil {
			return Lead{}, getErr
		}
		return Lead{}, ErrVersionConflict
	}
	return updated, err
}
