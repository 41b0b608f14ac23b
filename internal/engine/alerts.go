package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invensight/stockpulse/internal/domain"
)

// AlertGenerator derives alert creations and resolutions from a classified
// snapshot. It never talks to storage: the caller supplies the currently open
// alerts and applies the returned changes, which keeps the evaluation
// idempotent and upholds the one-open-alert-per-(product, type) invariant.
type AlertGenerator struct {
	expiryWarningDays int
}

func NewAlertGenerator(expiryWarningDays int) *AlertGenerator {
	if expiryWarningDays <= 0 {
		expiryWarningDays = 7
	}
	return &AlertGenerator{expiryWarningDays: expiryWarningDays}
}

// Evaluate computes the alert changes for one product. Running it twice on
// the same input, with the first run's creations folded into openAlerts,
// yields no further changes.
func (g *AlertGenerator) Evaluate(
	m domain.StockMetrics,
	status domain.StockStatus,
	urgency domain.Urgency,
	openAlerts []domain.Alert,
	asOf time.Time,
) (creates []domain.Alert, resolves []domain.Alert) {
	desired := g.desiredAlerts(m, status, urgency, asOf)

	openByType := make(map[domain.AlertType]domain.Alert, len(openAlerts))
	for _, a := range openAlerts {
		if a.Open() {
			openByType[a.Type] = a
		}
	}

	for _, want := range desired {
		if _, exists := openByType[want.Type]; !exists {
			creates = append(creates, want)
		}
	}

	wantedTypes := make(map[domain.AlertType]bool, len(desired))
	for _, want := range desired {
		wantedTypes[want.Type] = true
	}
	for _, a := range openAlerts {
		if a.Open() && !wantedTypes[a.Type] {
			resolves = append(resolves, a)
		}
	}

	return creates, resolves
}

// desiredAlerts is the full set of alerts that should be open for the product
// right now. Stock-status and expiry alerts are independent: a product can
// carry a low-stock and an expiring-soon alert at the same time.
func (g *AlertGenerator) desiredAlerts(m domain.StockMetrics, status domain.StockStatus, urgency domain.Urgency, asOf time.Time) []domain.Alert {
	var desired []domain.Alert

	switch status {
	case domain.StatusOutOfStock:
		desired = append(desired, g.newAlert(m, domain.AlertOutOfStock, domain.SeverityCritical, asOf,
			fmt.Sprintf("%s is out of stock", m.ProductID)))
	case domain.StatusLowStock:
		desired = append(desired, g.newAlert(m, domain.AlertLowStock, domain.SeverityFromUrgency(urgency), asOf,
			fmt.Sprintf("%s stock %d at or below threshold %d", m.ProductID, m.CurrentStock, m.LowStockThreshold)))
	case domain.StatusOverstock:
		desired = append(desired, g.newAlert(m, domain.AlertOverstock, domain.SeverityLow, asOf,
			fmt.Sprintf("%s stock %d above overstock limit %d", m.ProductID, m.CurrentStock, m.OverstockLimit)))
	}

	if m.ExpiryDate != nil {
		days := daysUntil(asOf, *m.ExpiryDate)
		switch {
		case days <= 0:
			desired = append(desired, g.newAlert(m, domain.AlertExpired, domain.SeverityCritical, asOf,
				fmt.Sprintf("%s expired on %s", m.ProductID, m.ExpiryDate.Format("2006-01-02"))))
		case days <= g.expiryWarningDays:
			desired = append(desired, g.newAlert(m, domain.AlertExpiringSoon, domain.SeverityHigh, asOf,
				fmt.Sprintf("%s expires in %d days", m.ProductID, days)))
		}
	}

	return desired
}

func (g *AlertGenerator) newAlert(m domain.StockMetrics, t domain.AlertType, sev domain.Severity, asOf time.Time, msg string) domain.Alert {
	return domain.Alert{
		ID:        uuid.NewString(),
		ProductID: m.ProductID,
		Type:      t,
		Severity:  sev,
		Message:   msg,
		Priority:  alertPriority(m, sev),
		CreatedAt: asOf,
	}
}

// alertPriority weights severity by the stock value at risk so that expensive
// products sort first on the alerts dashboard.
func alertPriority(m domain.StockMetrics, sev domain.Severity) decimal.Decimal {
	atRisk := m.ReorderPoint - m.CurrentStock
	if atRisk < 1 {
		atRisk = 1
	}
	return m.UnitPrice.
		Mul(decimal.NewFromInt(int64(atRisk))).
		Mul(decimal.NewFromInt(domain.SeverityWeight(sev)))
}

func daysUntil(asOf, expiry time.Time) int {
	from := asOf.Truncate(24 * time.Hour)
	to := expiry.Truncate(24 * time.Hour)
	return int(to.Sub(from).Hours() / 24)
}
