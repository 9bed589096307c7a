// Package fixtures seeds demo data for local development. Seeding is
// idempotent: fixed ids and ON CONFLICT guards make repeated startups safe.
package fixtures

import (
	"context"

	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts a handful of demo leads and one automation rule. Only runs
// when SEED_DEMO_DATA is enabled; production deployments never call this.
func Seed(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	leads := []struct {
		id, name, phone, source, location, propertyInterest, agent string
		score                                                      int
		budgetMin, budgetMax                                       int64
	}{
		{
			id: "8d7f3a52-1c9e-4b6a-9f0d-2e5c8a714b31", name: "Fatima Al Mansouri",
			phone: "+971501234567", source: "bayut", location: "Dubai Marina",
			propertyInterest: "2BR apartment", agent: "agent.sara", score: 85,
			budgetMin: 1_200_000, budgetMax: 1_800_000,
		},
		{
			id: "4b1e9c07-6f2d-4a83-b5e1-90c7d3f8a246", name: "James Whitfield",
			phone: "+971529876543", source: "property_finder", location: "Palm Jumeirah",
			propertyInterest: "villa", agent: "agent.omar", score: 72,
			budgetMin: 4_000_000, budgetMax: 6_500_000,
		},
		{
			id: "c2a85f19-3d47-4e0b-8c6a-5b9e1d07f382", name: "Priya Nair",
			phone: "+971554567890", source: "website", location: "JVC",
			propertyInterest: "studio", agent: "", score: 40,
			budgetMin: 450_000, budgetMax: 700_000,
		},
	}

	for _, l := range leads {
		_, err := pool.Exec(ctx, `
			INSERT INTO leads (
				id, name, phone, source, score, status,
				budget_min, budget_max, location, property_interest, assigned_agent
			)
			VALUES ($1, $2, $3, $4, $5, 'new', $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`, l.id, l.name, l.phone, l.source, l.score, l.budgetMin, l.budgetMax,
			l.location, l.propertyInterest, l.agent)
		if err != nil {
			return err
		}
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO automation_rules (id, name, trigger, conditions, actions, is_active, assigned_agent)
		VALUES (
			'f6d04c3b-8a21-4e97-b5c0-7d3e9f1a6824',
			'High-budget lead follow-up',
			'lead.created',
			'["budget_max > 3000000"]'::jsonb,
			'[{"type": "create_task", "taskName": "Call high-budget lead", "taskType": "lead_followup", "priority": "high", "estimatedDurationMinutes": 20, "delayMinutes": 60}]'::jsonb,
			TRUE,
			'agent.sara'
		)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return err
	}

	log.Info("demo data seeded", "leads", len(leads), "rules", 1)
	return nil
}
