package domain

import "strings"

// StockStatus is the derived stock classification for a product.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
	StatusOverstock  StockStatus = "overstock"
)

// Urgency ranks how quickly a status needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Severity is the alert counterpart of Urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertType identifies the condition an alert reports.
type AlertType string

const (
	AlertLowStock     AlertType = "low_stock"
	AlertOutOfStock   AlertType = "out_of_stock"
	AlertOverstock    AlertType = "overstock"
	AlertExpiringSoon AlertType = "expiring_soon"
	AlertExpired      AlertType = "expired"
)

var stockStatuses = map[string]StockStatus{
	"out_of_stock": StatusOutOfStock,
	"low_stock":    StatusLowStock,
	"in_stock":     StatusInStock,
	"overstock":    StatusOverstock,
}

var alertTypes = map[string]AlertType{
	"low_stock":     AlertLowStock,
	"out_of_stock":  AlertOutOfStock,
	"overstock":     AlertOverstock,
	"expiring_soon": AlertExpiringSoon,
	"expired":       AlertExpired,
}

var urgencyRank = map[Urgency]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// ParseStockStatus returns the status for a given label (case-insensitive).
func ParseStockStatus(label string) (StockStatus, bool) {
	status, ok := stockStatuses[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// ParseAlertType returns the alert type for a given label (case-insensitive).
func ParseAlertType(label string) (AlertType, bool) {
	t, ok := alertTypes[strings.ToLower(strings.TrimSpace(label))]

	return t, ok
}

// UrgencyRank maps an urgency to its ordinal rank, higher is more urgent.
func UrgencyRank(u Urgency) int {
	return urgencyRank[u]
}

// SeverityFromUrgency maps an urgency tier onto the matching alert severity.
func SeverityFromUrgency(u Urgency) Severity {
	switch u {
	case UrgencyCritical:
		return SeverityCritical
	case UrgencyHigh:
		return SeverityHigh
	case UrgencyMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityWeight is the numeric weight used for value-based prioritization.
func SeverityWeight(s Severity) int64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
