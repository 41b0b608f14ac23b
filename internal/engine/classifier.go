package engine

import (
	"errors"
	"fmt"

	"github.com/invensight/stockpulse/internal/domain"
)

// ErrInvalidInput marks a snapshot rejected at the engine boundary. The
// product's pipeline is skipped and reported, never silently coerced.
var ErrInvalidInput = errors.New("invalid stock metrics")

// ValidateMetrics checks a snapshot before any classification runs.
func ValidateMetrics(m domain.StockMetrics) error {
	if m.ProductID == "" {
		return fmt.Errorf("%w: empty product id", ErrInvalidInput)
	}
	if m.CurrentStock < 0 {
		return fmt.Errorf("%w: negative stock %d for %s", ErrInvalidInput, m.CurrentStock, m.ProductID)
	}
	if m.LowStockThreshold < 0 {
		return fmt.Errorf("%w: negative low stock threshold %d for %s", ErrInvalidInput, m.LowStockThreshold, m.ProductID)
	}
	if m.ReorderPoint < 0 {
		return fmt.Errorf("%w: negative reorder point %d for %s", ErrInvalidInput, m.ReorderPoint, m.ProductID)
	}
	if m.OverstockLimit > 0 && m.OverstockLimit <= m.ReorderPoint {
		return fmt.Errorf("%w: overstock limit %d not above reorder point %d for %s",
			ErrInvalidInput, m.OverstockLimit, m.ReorderPoint, m.ProductID)
	}
	if m.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative unit price for %s", ErrInvalidInput, m.ProductID)
	}
	return nil
}

// Classify derives the stock status and urgency tier for a snapshot.
// Rules are evaluated in precedence order, first match wins.
func Classify(m domain.StockMetrics) (domain.StockStatus, domain.Urgency, error) {
	if err := ValidateMetrics(m); err != nil {
		return "", "", err
	}

	switch {
	case m.CurrentStock <= 0:
		return domain.StatusOutOfStock, domain.UrgencyCritical, nil

	case m.CurrentStock <= m.LowStockThreshold:
		return domain.StatusLowStock, lowStockUrgency(m.CurrentStock, m.LowStockThreshold), nil

	case m.OverstockLimit > 0 && m.CurrentStock > m.OverstockLimit:
		return domain.StatusOverstock, domain.UrgencyLow, nil

	default:
		return domain.StatusInStock, domain.UrgencyLow, nil
	}
}

func lowStockUrgency(stock, threshold int) domain.Urgency {
	// A zero threshold would divide by zero; treat it as high urgency outright.
	if threshold == 0 {
		return domain.UrgencyHigh
	}

	ratio := float64(stock) / float64(threshold)
	switch {
	case ratio <= 0.30:
		return domain.UrgencyCritical
	case ratio <= 0.50:
		return domain.UrgencyHigh
	default:
		return domain.UrgencyMedium
	}
}
