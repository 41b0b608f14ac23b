// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics holds the prometheus collectors for the evaluation pipeline.
type EngineMetrics struct {
	EvaluationsTotal  prometheus.Counter
	ProductsEvaluated prometheus.Counter
	AlertsCreated     *prometheus.CounterVec
	AlertsResolved    prometheus.Counter
	ItemFailures      *prometheus.CounterVec
	EvaluationSeconds prometheus.Histogram
}

// New registers the engine collectors on the given registerer. Pass a fresh
// prometheus.NewRegistry in tests.
func New(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		EvaluationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockpulse_evaluations_total",
				Help: "Total number of evaluation runs",
			},
		),
		ProductsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockpulse_products_evaluated_total",
				Help: "Total number of product snapshots evaluated",
			},
		),
		AlertsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_alerts_created_total",
				Help: "Total number of alerts created, by type",
			},
			[]string{"type"},
		),
		AlertsResolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockpulse_alerts_resolved_total",
				Help: "Total number of alerts resolved",
			},
		),
		ItemFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_item_failures_total",
				Help: "Total number of per-product pipeline failures, by stage",
			},
			[]string{"stage"},
		),
		EvaluationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockpulse_evaluation_duration_seconds",
				Help:    "Duration of evaluation runs",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.ProductsEvaluated,
		m.AlertsCreated,
		m.AlertsResolved,
		m.ItemFailures,
		m.EvaluationSeconds,
	)

	return m
}
