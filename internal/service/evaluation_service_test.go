package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/engine"
	"github.com/invensight/stockpulse/internal/metrics"
	"github.com/invensight/stockpulse/internal/repository/memory"
)

type fixture struct {
	svc       *EvaluationService
	inventory *memory.InventoryStore
	demand    *memory.DemandStore
	alerts    *memory.AlertStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	inventory := memory.NewInventoryStore()
	demand := memory.NewDemandStore(12)
	alerts := memory.NewAlertStore()
	m := metrics.New(prometheus.NewRegistry())

	svc := NewEvaluationService(inventory, demand, alerts, engine.New(engine.DefaultConfig()), nil, m, 12)
	return &fixture{svc: svc, inventory: inventory, demand: demand, alerts: alerts}
}

func seedProduct(t *testing.T, f *fixture, id string, stock int) {
	t.Helper()

	err := f.inventory.UpsertMetrics(context.Background(), domain.StockMetrics{
		ProductID:         id,
		ProductName:       "Product " + id,
		CurrentStock:      stock,
		LowStockThreshold: 10,
		ReorderPoint:      20,
		OverstockLimit:    100,
		UnitPrice:         decimal.NewFromInt(3),
		LeadTimeDays:      5,
	})
	if err != nil {
		t.Fatalf("UpsertMetrics(%s) error = %v", id, err)
	}
}

func seedDemand(t *testing.T, f *fixture, id string, units ...int) {
	t.Helper()

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, u := range units {
		err := f.demand.Append(context.Background(), domain.DemandObservation{
			ProductID:   id,
			PeriodStart: start.AddDate(0, 0, 7*i),
			UnitsSold:   u,
		})
		if err != nil {
			t.Fatalf("Append(%s) error = %v", id, err)
		}
	}
}

func TestRunEvaluation_CreatesAndPersistsAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 0)
	seedProduct(t, f, "SKU-002", 50)
	seedDemand(t, f, "SKU-001", 10, 12, 11, 15)

	batch, err := f.svc.RunEvaluation(ctx)
	if err != nil {
		t.Fatalf("RunEvaluation() error = %v", err)
	}
	if batch.ProductCount != 2 {
		t.Errorf("ProductCount = %d, want 2", batch.ProductCount)
	}
	if len(batch.AlertsToCreate) != 1 || batch.AlertsToCreate[0].Type != domain.AlertOutOfStock {
		t.Fatalf("AlertsToCreate = %+v, want one out_of_stock alert", batch.AlertsToCreate)
	}

	open, err := f.alerts.OpenAlertsForProduct(ctx, "SKU-001")
	if err != nil {
		t.Fatalf("OpenAlertsForProduct() error = %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("persisted open alerts = %d, want 1", len(open))
	}
}

func TestRunEvaluation_SecondRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 3)

	first, err := f.svc.RunEvaluation(ctx)
	if err != nil {
		t.Fatalf("RunEvaluation() error = %v", err)
	}
	if len(first.AlertsToCreate) != 1 {
		t.Fatalf("first run creates = %d, want 1", len(first.AlertsToCreate))
	}

	second, err := f.svc.RunEvaluation(ctx)
	if err != nil {
		t.Fatalf("second RunEvaluation() error = %v", err)
	}
	if len(second.AlertsToCreate) != 0 {
		t.Errorf("second run creates = %+v, want none", second.AlertsToCreate)
	}
	if len(second.AlertsToResolve) != 0 {
		t.Errorf("second run resolves = %+v, want none", second.AlertsToResolve)
	}

	open, _ := f.alerts.OpenAlertsForProduct(ctx, "SKU-001")
	if len(open) != 1 {
		t.Errorf("open alerts after two runs = %d, want 1", len(open))
	}
}

func TestRunEvaluation_RestockResolvesAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 3)

	if _, err := f.svc.RunEvaluation(ctx); err != nil {
		t.Fatalf("RunEvaluation() error = %v", err)
	}

	seedProduct(t, f, "SKU-001", 60)
	batch, err := f.svc.RunEvaluation(ctx)
	if err != nil {
		t.Fatalf("RunEvaluation() after restock error = %v", err)
	}
	if len(batch.AlertsToResolve) != 1 || batch.AlertsToResolve[0].Type != domain.AlertLowStock {
		t.Fatalf("AlertsToResolve = %+v, want the low_stock alert", batch.AlertsToResolve)
	}

	open, _ := f.alerts.OpenAlertsForProduct(ctx, "SKU-001")
	if len(open) != 0 {
		t.Errorf("open alerts after restock = %+v, want none", open)
	}
}

func TestEvaluateProduct_SingleProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 4)
	seedProduct(t, f, "SKU-002", 0)
	seedDemand(t, f, "SKU-001", 10, 12, 11, 15)

	batch, err := f.svc.EvaluateProduct(ctx, "SKU-001")
	if err != nil {
		t.Fatalf("EvaluateProduct() error = %v", err)
	}
	if batch.ProductCount != 1 {
		t.Errorf("ProductCount = %d, want 1", batch.ProductCount)
	}

	// The other product's alerts are untouched.
	open, _ := f.alerts.OpenAlertsForProduct(ctx, "SKU-002")
	if len(open) != 0 {
		t.Errorf("SKU-002 open alerts = %+v, want none", open)
	}

	if _, err := f.svc.EvaluateProduct(ctx, "SKU-404"); err == nil {
		t.Error("EvaluateProduct(unknown) error = nil, want error")
	}
}

func TestGetStatuses_FiltersAndSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 0)
	seedProduct(t, f, "SKU-002", 5)
	seedProduct(t, f, "SKU-003", 50)

	all, err := f.svc.GetStatuses(ctx, nil)
	if err != nil {
		t.Fatalf("GetStatuses() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetStatuses() = %d, want 3", len(all))
	}
	if all[0].Status != domain.StatusOutOfStock || all[1].Status != domain.StatusLowStock || all[2].Status != domain.StatusInStock {
		t.Errorf("statuses = %v, %v, %v", all[0].Status, all[1].Status, all[2].Status)
	}

	subset, err := f.svc.GetStatuses(ctx, []string{"SKU-002"})
	if err != nil {
		t.Fatalf("GetStatuses(filter) error = %v", err)
	}
	if len(subset) != 1 || subset[0].ProductID != "SKU-002" {
		t.Errorf("GetStatuses(filter) = %+v, want SKU-002 only", subset)
	}
}

func TestGetSummary_CountsPerStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 0)
	seedProduct(t, f, "SKU-002", 0)
	seedProduct(t, f, "SKU-003", 5)
	seedProduct(t, f, "SKU-004", 50)

	summary, err := f.svc.GetSummary(ctx)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}

	counts := make(map[domain.StockStatus]int, len(summary))
	for _, s := range summary {
		counts[s.Status] = s.Count
	}
	if counts[domain.StatusOutOfStock] != 2 {
		t.Errorf("out_of_stock count = %d, want 2", counts[domain.StatusOutOfStock])
	}
	if counts[domain.StatusLowStock] != 1 {
		t.Errorf("low_stock count = %d, want 1", counts[domain.StatusLowStock])
	}
	if counts[domain.StatusInStock] != 1 {
		t.Errorf("in_stock count = %d, want 1", counts[domain.StatusInStock])
	}
}

func TestGetRecommendations_TriggersRunWhenCold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 4)

	recs, err := f.svc.GetRecommendations(ctx)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ProductID != "SKU-001" {
		t.Fatalf("recommendations = %+v, want one for SKU-001", recs)
	}
	if recs[0].RecommendedQuantity != 16 {
		t.Errorf("RecommendedQuantity = %d, want 16", recs[0].RecommendedQuantity)
	}
}

func TestGetForecast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedDemand(t, f, "SKU-001", 10, 12, 11, 15)

	fc, err := f.svc.GetForecast(ctx, "SKU-001", 1)
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if fc.PointEstimate != 14 {
		t.Errorf("PointEstimate = %d, want 14", fc.PointEstimate)
	}

	empty, err := f.svc.GetForecast(ctx, "SKU-404", 1)
	if err != nil {
		t.Fatalf("GetForecast(no history) error = %v", err)
	}
	if empty.Confidence != "insufficient" {
		t.Errorf("Confidence = %q, want insufficient", empty.Confidence)
	}
}

func TestGetAlerts_ListsPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedProduct(t, f, "SKU-001", 0)
	seedProduct(t, f, "SKU-002", 3)

	if _, err := f.svc.RunEvaluation(ctx); err != nil {
		t.Fatalf("RunEvaluation() error = %v", err)
	}

	alerts, total, err := f.svc.GetAlerts(ctx, domain.AlertFilter{})
	if err != nil {
		t.Fatalf("GetAlerts() error = %v", err)
	}
	if total != 2 || len(alerts) != 2 {
		t.Fatalf("GetAlerts() = %d/%d, want 2 alerts", len(alerts), total)
	}
}
