package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
)

// Calculator turns a classified snapshot into a reorder recommendation.
type Calculator struct {
	defaultLeadTimeDays int
}

// NewCalculator creates a calculator with the fallback lead time used when a
// product carries none.
func NewCalculator(defaultLeadTimeDays int) *Calculator {
	if defaultLeadTimeDays <= 0 {
		defaultLeadTimeDays = 7
	}
	return &Calculator{defaultLeadTimeDays: defaultLeadTimeDays}
}

// Recommend returns the suggested order for a product, or nil when the status
// needs no action (in stock or overstock).
//
// Quantity is max(reorderPoint - currentStock, lowStockThreshold): order at
// least enough to reach the reorder point, never less than one threshold's
// worth. A forecast only ever raises the quantity, it cannot lower it.
func (c *Calculator) Recommend(
	m domain.StockMetrics,
	status domain.StockStatus,
	forecast *domain.ForecastResult,
	history []domain.DemandObservation,
	asOf time.Time,
) *domain.ReplenishmentRecommendation {
	if status == domain.StatusInStock || status == domain.StatusOverstock {
		return nil
	}

	qty := m.ReorderPoint - m.CurrentStock
	if qty < m.LowStockThreshold {
		qty = m.LowStockThreshold
	}
	rationale := fmt.Sprintf("refill from %d toward reorder point %d", m.CurrentStock, m.ReorderPoint)

	if forecast != nil && forecast.Confidence != ConfidenceInsufficient && forecast.PointEstimate > qty {
		qty = forecast.PointEstimate
		rationale = fmt.Sprintf("raised to forecast demand %d (%s confidence)", forecast.PointEstimate, forecast.Confidence)
	}

	return &domain.ReplenishmentRecommendation{
		ProductID:           m.ProductID,
		RecommendedQuantity: qty,
		TargetOrderDate:     c.targetOrderDate(m, history, asOf),
		Rationale:           rationale,
	}
}

// targetOrderDate places the order so that stock arrives before the projected
// stockout. With no demand history the product is treated as urgent.
func (c *Calculator) targetOrderDate(m domain.StockMetrics, history []domain.DemandObservation, asOf time.Time) time.Time {
	day := asOf.Truncate(24 * time.Hour)

	avgDaily := meanUnits(history)
	if len(history) == 0 || avgDaily <= 0 {
		return day.AddDate(0, 0, 1)
	}

	daysToStockout := int(math.Floor(float64(m.CurrentStock) / avgDaily))
	stockout := day.AddDate(0, 0, daysToStockout)

	lead := m.LeadTimeDays
	if lead <= 0 {
		lead = c.defaultLeadTimeDays
	}

	target := stockout.AddDate(0, 0, -lead)
	if target.Before(day) {
		return day
	}
	return target
}
