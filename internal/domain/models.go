// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMetrics is the per-product numeric snapshot the engine evaluates.
// It is treated as immutable for the duration of an evaluation.
type StockMetrics struct {
	ProductID         string          `json:"product_id" db:"product_id"`
	ProductName       string          `json:"product_name" db:"product_name"`
	CurrentStock      int             `json:"current_stock" db:"current_stock"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	ReorderPoint      int             `json:"reorder_point" db:"reorder_point"`
	OverstockLimit    int             `json:"overstock_limit" db:"overstock_limit"`
	UnitPrice         decimal.Decimal `json:"unit_price" db:"unit_price"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
	LeadTimeDays      int             `json:"lead_time_days" db:"lead_time_days"`
}

// DemandObservation is one completed period of demand for a product.
// Observations are append-only and retained for a bounded rolling window.
type DemandObservation struct {
	ProductID   string    `json:"product_id" db:"product_id"`
	PeriodStart time.Time `json:"period_start" db:"period_start"`
	UnitsSold   int       `json:"units_sold" db:"units_sold"`
}

// ProductStatus is the derived classification for one product. It is
// recomputed on every evaluation and never stored as the source of truth.
type ProductStatus struct {
	ProductID    string      `json:"product_id"`
	ProductName  string      `json:"product_name"`
	CurrentStock int         `json:"current_stock"`
	Status       StockStatus `json:"status"`
	Urgency      Urgency     `json:"urgency"`
}

// ReplenishmentRecommendation is the engine's suggested order for a product.
type ReplenishmentRecommendation struct {
	ProductID           string    `json:"product_id"`
	RecommendedQuantity int       `json:"recommended_quantity"`
	TargetOrderDate     time.Time `json:"target_order_date"`
	Rationale           string    `json:"rationale"`
}

// ForecastResult is the next-period demand projection for a product.
// Confidence "insufficient" marks the defined empty-history result; callers
// must check it before trusting the numeric fields.
type ForecastResult struct {
	ProductID     string  `json:"product_id"`
	PeriodLabel   string  `json:"period_label"`
	PointEstimate int     `json:"point_estimate"`
	LowerBound    float64 `json:"lower_bound"`
	UpperBound    float64 `json:"upper_bound"`
	TrendPercent  float64 `json:"trend_percent"`
	Confidence    string  `json:"confidence"`
}

// Alert is an actionable inventory signal. At most one open alert may exist
// per (product, type) pair.
type Alert struct {
	ID         string          `json:"id" db:"id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	Type       AlertType       `json:"type" db:"alert_type"`
	Severity   Severity        `json:"severity" db:"severity"`
	Message    string          `json:"message" db:"message"`
	Priority   decimal.Decimal `json:"priority" db:"priority"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Open reports whether the alert has not been resolved yet.
func (a Alert) Open() bool {
	return a.ResolvedAt == nil
}

// ItemFailure records a per-product pipeline failure inside a batch.
type ItemFailure struct {
	ProductID string `json:"product_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// BatchResult aggregates the outputs of one evaluation run.
type BatchResult struct {
	EvaluatedAt     time.Time                     `json:"evaluated_at"`
	ProductCount    int                           `json:"product_count"`
	Statuses        []ProductStatus               `json:"statuses"`
	Recommendations []ReplenishmentRecommendation `json:"recommendations"`
	Forecasts       []ForecastResult              `json:"forecasts"`
	AlertsToCreate  []Alert                       `json:"alerts_to_create"`
	AlertsToResolve []Alert                       `json:"alerts_to_resolve"`
	Failures        []ItemFailure                 `json:"failures"`
}

// StatusSummary is a count of products per stock status.
type StatusSummary struct {
	Status StockStatus `json:"status" db:"status"`
	Count  int         `json:"count" db:"count"`
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	ProductIDs      []string `json:"product_ids"`
	Type            string   `json:"type"`
	IncludeResolved bool     `json:"include_resolved"`
	Page            int      `json:"page"`
	PageSize        int      `json:"page_size"`
}
