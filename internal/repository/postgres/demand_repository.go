// internal/repository/postgres/demand_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/repository"
)

type demandRepository struct {
	db *DB
}

func NewDemandRepository(db *DB) repository.DemandStore {
	return &demandRepository{db: db}
}

func (r *demandRepository) History(ctx context.Context, productID string, window int) ([]domain.DemandObservation, error) {
	if window <= 0 {
		window = 12
	}

	query := `
        SELECT product_id, period_start, units_sold
        FROM (
            SELECT product_id, period_start, units_sold
            FROM demand_observations
            WHERE product_id = $1
            ORDER BY period_start DESC
            LIMIT $2
        ) recent
        ORDER BY period_start
    `

	var history []domain.DemandObservation
	if err := r.db.SelectContext(ctx, &history, query, productID, window); err != nil {
		return nil, fmt.Errorf("error getting demand history for %s: %w", productID, err)
	}

	return history, nil
}

func (r *demandRepository) Histories(ctx context.Context, window int) (map[string][]domain.DemandObservation, error) {
	if window <= 0 {
		window = 12
	}

	query := `
        SELECT product_id, period_start, units_sold
        FROM (
            SELECT
                product_id, period_start, units_sold,
                ROW_NUMBER() OVER (PARTITION BY product_id ORDER BY period_start DESC) AS rn
            FROM demand_observations
        ) ranked
        WHERE rn <= $1
        ORDER BY product_id, period_start
    `

	var rows []domain.DemandObservation
	if err := r.db.SelectContext(ctx, &rows, query, window); err != nil {
		return nil, fmt.Errorf("error getting demand histories: %w", err)
	}

	histories := make(map[string][]domain.DemandObservation)
	for _, obs := range rows {
		histories[obs.ProductID] = append(histories[obs.ProductID], obs)
	}

	return histories, nil
}

func (r *demandRepository) Append(ctx context.Context, obs domain.DemandObservation) error {
	// Observations are append-only: a period already recorded stays as is.
	query := `
        INSERT INTO demand_observations (product_id, period_start, units_sold)
        VALUES ($1, $2, $3)
        ON CONFLICT (product_id, period_start) DO NOTHING
    `

	_, err := r.db.ExecContext(ctx, query, obs.ProductID, obs.PeriodStart, obs.UnitsSold)
	if err != nil {
		return fmt.Errorf("error appending demand observation for %s: %w", obs.ProductID, err)
	}

	return nil
}
