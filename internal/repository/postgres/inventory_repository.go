// internal/repository/postgres/inventory_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/repository"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) repository.InventoryStore {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) ListMetrics(ctx context.Context) ([]domain.StockMetrics, error) {
	query := `
        SELECT
            product_id, product_name, current_stock, low_stock_threshold,
            reorder_point, overstock_limit, unit_price, expiry_date, lead_time_days
        FROM products
        ORDER BY product_id
    `

	var metrics []domain.StockMetrics
	if err := r.db.SelectContext(ctx, &metrics, query); err != nil {
		return nil, fmt.Errorf("error listing stock metrics: %w", err)
	}

	return metrics, nil
}

func (r *inventoryRepository) GetMetrics(ctx context.Context, productID string) (*domain.StockMetrics, error) {
	query := `
        SELECT
            product_id, product_name, current_stock, low_stock_threshold,
            reorder_point, overstock_limit, unit_price, expiry_date, lead_time_days
        FROM products
        WHERE product_id = $1
    `

	var m domain.StockMetrics
	if err := r.db.GetContext(ctx, &m, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting stock metrics for %s: %w", productID, err)
	}

	return &m, nil
}

func (r *inventoryRepository) UpsertMetrics(ctx context.Context, m domain.StockMetrics) error {
	query := `
        INSERT INTO products (
            product_id, product_name, current_stock, low_stock_threshold,
            reorder_point, overstock_limit, unit_price, expiry_date, lead_time_days
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (product_id) DO UPDATE SET
            product_name = EXCLUDED.product_name,
            current_stock = EXCLUDED.current_stock,
            low_stock_threshold = EXCLUDED.low_stock_threshold,
            reorder_point = EXCLUDED.reorder_point,
            overstock_limit = EXCLUDED.overstock_limit,
            unit_price = EXCLUDED.unit_price,
            expiry_date = EXCLUDED.expiry_date,
            lead_time_days = EXCLUDED.lead_time_days
    `

	_, err := r.db.ExecContext(ctx, query,
		m.ProductID, m.ProductName, m.CurrentStock, m.LowStockThreshold,
		m.ReorderPoint, m.OverstockLimit, m.UnitPrice, m.ExpiryDate, m.LeadTimeDays)
	if err != nil {
		return fmt.Errorf("error upserting stock metrics for %s: %w", m.ProductID, err)
	}

	return nil
}
