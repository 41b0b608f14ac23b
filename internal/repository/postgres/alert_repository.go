// internal/repository/postgres/alert_repository.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) repository.AlertStore {
	return &alertRepository{db: db}
}

const alertColumns = `id, product_id, alert_type, severity, message, priority, created_at, resolved_at`

func (r *alertRepository) OpenAlerts(ctx context.Context) (map[string][]domain.Alert, error) {
	query := `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE resolved_at IS NULL
        ORDER BY product_id, created_at
    `

	var alerts []domain.Alert
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, fmt.Errorf("error getting open alerts: %w", err)
	}

	byProduct := make(map[string][]domain.Alert)
	for _, a := range alerts {
		byProduct[a.ProductID] = append(byProduct[a.ProductID], a)
	}

	return byProduct, nil
}

func (r *alertRepository) OpenAlertsForProduct(ctx context.Context, productID string) ([]domain.Alert, error) {
	query := `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE resolved_at IS NULL AND product_id = $1
        ORDER BY created_at
    `

	var alerts []domain.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, productID); err != nil {
		return nil, fmt.Errorf("error getting open alerts for %s: %w", productID, err)
	}

	return alerts, nil
}

// Apply persists one batch's alert changes in a single transaction. The
// insert re-checks for an existing open alert of the same (product, type) so
// concurrent runs cannot violate the uniqueness invariant.
func (r *alertRepository) Apply(ctx context.Context, creates []domain.Alert, resolves []domain.Alert, resolvedAt time.Time) error {
	if len(creates) == 0 && len(resolves) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		resolveQuery := `
            UPDATE alerts SET resolved_at = $1
            WHERE id = $2 AND resolved_at IS NULL
        `
		for _, a := range resolves {
			if _, err := tx.ExecContext(ctx, resolveQuery, resolvedAt, a.ID); err != nil {
				return fmt.Errorf("error resolving alert %s: %w", a.ID, err)
			}
		}

		createQuery := `
            INSERT INTO alerts (id, product_id, alert_type, severity, message, priority, created_at)
            SELECT $1, $2, $3, $4, $5, $6, $7
            WHERE NOT EXISTS (
                SELECT 1 FROM alerts
                WHERE product_id = $2 AND alert_type = $3 AND resolved_at IS NULL
            )
        `
		for _, a := range creates {
			if _, err := tx.ExecContext(ctx, createQuery,
				a.ID, a.ProductID, a.Type, a.Severity, a.Message, a.Priority, a.CreatedAt); err != nil {
				return fmt.Errorf("error creating alert for %s/%s: %w", a.ProductID, a.Type, err)
			}
		}

		return nil
	})
}

func (r *alertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, int, error) {
	countQuery := `
        SELECT COUNT(*)
        FROM alerts
        WHERE 1=1
    `

	query := `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE 1=1
    `

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.ProductIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.ProductIDs))
		argCounter++
	}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("alert_type = $%d", argCounter))
		args = append(args, filter.Type)
		argCounter++
	}

	if !filter.IncludeResolved {
		conditions = append(conditions, "resolved_at IS NULL")
	}

	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting alerts: %w", err)
	}

	query += " ORDER BY priority DESC, created_at DESC"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var alerts []domain.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing alerts: %w", err)
	}

	return alerts, total, nil
}
