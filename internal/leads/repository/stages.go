package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// StageConfig holds the configured reporting figures for one pipeline stage.
// conversion_rate and average_time_in_stage are constants overwritten by
// reporting jobs outside this core, never derived here.
type StageConfig struct {
	Stage              string
	Position           int
	ConversionRate     float64
	AverageTimeInStage float64
}

// ErrStageNotFound is returned when no stage config matches the given name.
var ErrStageNotFound = errors.New("pipeline stage not found")

// ListStageConfigs returns the configured stages in funnel order.
func (r *Repository) ListStageConfigs(ctx context.Context) ([]StageConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stage, position, conversion_rate, average_time_in_stage
		FROM pipeline_stages
		ORDER BY position ASC, stage ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make([]StageConfig, 0)
	for rows.Next() {
		var cfg StageConfig
		if err := rows.Scan(&cfg.Stage, &cfg.Position, &cfg.ConversionRate, &cfg.AverageTimeInStage); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// UpdateStageConfig overwrites the configured figures for one stage.
func (r *Repository) UpdateStageConfig(ctx context.Context, stage string, conversionRate, averageTimeInStage float64) (StageConfig, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE pipeline_stages
		SET conversion_rate = $2, average_time_in_stage = $3, updated_at = now()
		WHERE stage = $1
		RETURNING stage, position, conversion_rate, average_time_in_stage
	`, stage, conversionRate, averageTimeInStage)

	var cfg StageConfig
	err := row.Scan(&cfg.Stage, &cfg.Position, &cfg.ConversionRate, &cfg.AverageTimeInStage)
	if errors.Is(err, pgx.ErrNoRows) {
		return StageConfig{}, ErrStageNotFound
	}
	return cfg, err
}
