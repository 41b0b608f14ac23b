package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/engine"
	"github.com/invensight/stockpulse/internal/metrics"
	"github.com/invensight/stockpulse/internal/repository/memory"
	"github.com/invensight/stockpulse/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inventory := memory.NewInventoryStore()
	demand := memory.NewDemandStore(12)
	alerts := memory.NewAlertStore()

	ctx := context.Background()
	products := []struct {
		id    string
		stock int
	}{
		{"SKU-001", 0},
		{"SKU-002", 4},
		{"SKU-003", 50},
	}
	for _, p := range products {
		err := inventory.UpsertMetrics(ctx, domain.StockMetrics{
			ProductID:         p.id,
			ProductName:       "Product " + p.id,
			CurrentStock:      p.stock,
			LowStockThreshold: 10,
			ReorderPoint:      20,
			OverstockLimit:    100,
			UnitPrice:         decimal.NewFromInt(2),
			LeadTimeDays:      5,
		})
		if err != nil {
			t.Fatalf("UpsertMetrics(%s) error = %v", p.id, err)
		}
	}

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, units := range []int{10, 12, 11, 15} {
		err := demand.Append(ctx, domain.DemandObservation{
			ProductID:   "SKU-002",
			PeriodStart: start.AddDate(0, 0, 7*i),
			UnitsSold:   units,
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	svc := service.NewEvaluationService(
		inventory, demand, alerts,
		engine.New(engine.DefaultConfig()),
		nil,
		metrics.New(prometheus.NewRegistry()),
		12,
	)
	return NewRouter(svc, nil)
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetStatusesEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/inventory/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Items []domain.ProductStatus `json:"items"`
		Total int                    `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
	if resp.Items[0].Status != domain.StatusOutOfStock {
		t.Errorf("first status = %v, want out_of_stock", resp.Items[0].Status)
	}
}

func TestGetStatusesEndpoint_Filtered(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/inventory/status?product_ids=SKU-002,SKU-404")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Items []domain.ProductStatus `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ProductID != "SKU-002" {
		t.Errorf("items = %+v, want SKU-002 only", resp.Items)
	}
}

func TestGetSummaryEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/inventory/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var summaries []domain.StatusSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(summaries) != 3 {
		t.Errorf("summaries = %+v, want 3 statuses", summaries)
	}
}

func TestGetForecastEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/inventory/forecast/SKU-002")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var fc domain.ForecastResult
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if fc.PointEstimate != 14 {
		t.Errorf("point estimate = %d, want 14", fc.PointEstimate)
	}

	// No history is not an error, just an insufficient-confidence result.
	w = doRequest(t, router, http.MethodGet, "/api/v1/inventory/forecast/SKU-404")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if fc.Confidence != "insufficient" {
		t.Errorf("confidence = %q, want insufficient", fc.Confidence)
	}
}

func TestEvaluateAndAlertsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/engine/evaluate")
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/alerts")
	if w.Code != http.StatusOK {
		t.Fatalf("alerts status = %d, want 200", w.Code)
	}

	var resp struct {
		Items []domain.Alert `json:"items"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	// Out-of-stock SKU-001 and low-stock SKU-002.
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestEvaluateProductEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/engine/evaluate/SKU-001")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/engine/evaluate/SKU-404")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown product status = %d, want 422", w.Code)
	}
}

func TestGetRecommendationsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/inventory/recommendations")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Items []domain.ReplenishmentRecommendation `json:"items"`
		Total int                                  `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	// SKU-001 is out of stock, SKU-002 is low.
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}
