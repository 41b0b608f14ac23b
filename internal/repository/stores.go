// internal/repository/stores.go
package repository

import (
	"context"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
)

// InventoryStore supplies stock metric snapshots. The engine only reads.
type InventoryStore interface {
	ListMetrics(ctx context.Context) ([]domain.StockMetrics, error)
	GetMetrics(ctx context.Context, productID string) (*domain.StockMetrics, error)
	UpsertMetrics(ctx context.Context, m domain.StockMetrics) error
}

// DemandStore supplies ordered demand observations per product, bounded to
// the configured retention window.
type DemandStore interface {
	History(ctx context.Context, productID string, window int) ([]domain.DemandObservation, error)
	Histories(ctx context.Context, window int) (map[string][]domain.DemandObservation, error)
	Append(ctx context.Context, obs domain.DemandObservation) error
}

// AlertStore holds alert state. Writes from a batch go through Apply so the
// open-alert uniqueness invariant is upheld in one place.
type AlertStore interface {
	OpenAlerts(ctx context.Context) (map[string][]domain.Alert, error)
	OpenAlertsForProduct(ctx context.Context, productID string) ([]domain.Alert, error)
	Apply(ctx context.Context, creates []domain.Alert, resolves []domain.Alert, resolvedAt time.Time) error
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, int, error)
}
