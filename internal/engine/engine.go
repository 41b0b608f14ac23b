package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
)

// Config holds the engine tunables. Zero values fall back to the defaults
// from DefaultConfig.
type Config struct {
	TrendWindow         int
	DefaultLeadTimeDays int
	ExpiryWarningDays   int
	SpreadMin           float64
	SpreadMax           float64
	WorkerCount         int
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		TrendWindow:         4,
		DefaultLeadTimeDays: 7,
		ExpiryWarningDays:   7,
		SpreadMin:           0.10,
		SpreadMax:           0.30,
		WorkerCount:         4,
	}
}

// Input carries everything one evaluation run needs. The engine performs no
// I/O of its own: snapshots, histories and open alerts are supplied in-memory
// by the caller.
type Input struct {
	Snapshots  []domain.StockMetrics
	Histories  map[string][]domain.DemandObservation
	OpenAlerts map[string][]domain.Alert
	AsOf       time.Time // zero means time.Now
}

// Engine composes the classifier, calculator, forecaster and alert generator
// into one evaluation pipeline per product.
type Engine struct {
	cfg        Config
	calculator *Calculator
	forecaster *Forecaster
	alerts     *AlertGenerator
	nowFn      func() time.Time
}

func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = def.TrendWindow
	}
	if cfg.DefaultLeadTimeDays <= 0 {
		cfg.DefaultLeadTimeDays = def.DefaultLeadTimeDays
	}
	if cfg.ExpiryWarningDays <= 0 {
		cfg.ExpiryWarningDays = def.ExpiryWarningDays
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}

	return &Engine{
		cfg:        cfg,
		calculator: NewCalculator(cfg.DefaultLeadTimeDays),
		forecaster: NewForecaster(cfg.TrendWindow, cfg.SpreadMin, cfg.SpreadMax),
		alerts:     NewAlertGenerator(cfg.ExpiryWarningDays),
		nowFn:      time.Now,
	}
}

// Forecaster exposes the engine's forecaster for on-demand projections.
func (e *Engine) Forecaster() *Forecaster {
	return e.forecaster
}

// ProductResult is the output of one product's pipeline.
type ProductResult struct {
	Status          *domain.ProductStatus
	Recommendation  *domain.ReplenishmentRecommendation
	Forecast        *domain.ForecastResult
	AlertsToCreate  []domain.Alert
	AlertsToResolve []domain.Alert
	Failures        []domain.ItemFailure
}

// EvaluateProduct runs the classify -> forecast -> recommend -> alert
// pipeline for a single product. Steps are sequential because later steps
// consume earlier outputs; a forecast failure does not stop classification or
// alerting.
func (e *Engine) EvaluateProduct(
	m domain.StockMetrics,
	history []domain.DemandObservation,
	openAlerts []domain.Alert,
	asOf time.Time,
) ProductResult {
	var res ProductResult

	status, urgency, err := Classify(m)
	if err != nil {
		res.Failures = append(res.Failures, domain.ItemFailure{
			ProductID: m.ProductID,
			Stage:     "classify",
			Reason:    err.Error(),
		})
		return res
	}
	res.Status = &domain.ProductStatus{
		ProductID:    m.ProductID,
		ProductName:  m.ProductName,
		CurrentStock: m.CurrentStock,
		Status:       status,
		Urgency:      urgency,
	}

	var forecast *domain.ForecastResult
	fc, err := e.forecaster.Forecast(m.ProductID, history, 1)
	if err != nil {
		res.Failures = append(res.Failures, domain.ItemFailure{
			ProductID: m.ProductID,
			Stage:     "forecast",
			Reason:    err.Error(),
		})
	} else {
		forecast = &fc
		res.Forecast = &fc
	}

	res.Recommendation = e.calculator.Recommend(m, status, forecast, history, asOf)
	res.AlertsToCreate, res.AlertsToResolve = e.alerts.Evaluate(m, status, urgency, openAlerts, asOf)

	return res
}

// EvaluateAll evaluates every snapshot as an embarrassingly-parallel batch.
// Per-product failures never abort the batch; cancellation is honored between
// products, never mid-pipeline for a single product.
func (e *Engine) EvaluateAll(ctx context.Context, in Input) (*domain.BatchResult, error) {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = e.nowFn()
	}

	result := &domain.BatchResult{
		EvaluatedAt:  asOf,
		ProductCount: len(in.Snapshots),
	}
	if len(in.Snapshots) == 0 {
		return result, nil
	}

	jobChan := make(chan domain.StockMetrics, len(in.Snapshots))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	workers := e.cfg.WorkerCount
	if workers > len(in.Snapshots) {
		workers = len(in.Snapshots)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobChan {
				res := e.EvaluateProduct(m, in.Histories[m.ProductID], in.OpenAlerts[m.ProductID], asOf)

				mu.Lock()
				if res.Status != nil {
					result.Statuses = append(result.Statuses, *res.Status)
				}
				if res.Recommendation != nil {
					result.Recommendations = append(result.Recommendations, *res.Recommendation)
				}
				if res.Forecast != nil {
					result.Forecasts = append(result.Forecasts, *res.Forecast)
				}
				result.AlertsToCreate = append(result.AlertsToCreate, res.AlertsToCreate...)
				result.AlertsToResolve = append(result.AlertsToResolve, res.AlertsToResolve...)
				result.Failures = append(result.Failures, res.Failures...)
				mu.Unlock()
			}
		}()
	}

	var cancelled error
	for _, m := range in.Snapshots {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
		case jobChan <- m:
			continue
		}
		break
	}
	close(jobChan)
	wg.Wait()

	sortBatch(result)

	return result, cancelled
}

// sortBatch orders the aggregated slices by product so batch output is
// deterministic regardless of worker scheduling.
func sortBatch(r *domain.BatchResult) {
	sort.Slice(r.Statuses, func(i, j int) bool { return r.Statuses[i].ProductID < r.Statuses[j].ProductID })
	sort.Slice(r.Recommendations, func(i, j int) bool { return r.Recommendations[i].ProductID < r.Recommendations[j].ProductID })
	sort.Slice(r.Forecasts, func(i, j int) bool { return r.Forecasts[i].ProductID < r.Forecasts[j].ProductID })
	sort.Slice(r.AlertsToCreate, func(i, j int) bool {
		if r.AlertsToCreate[i].ProductID != r.AlertsToCreate[j].ProductID {
			return r.AlertsToCreate[i].ProductID < r.AlertsToCreate[j].ProductID
		}
		return r.AlertsToCreate[i].Type < r.AlertsToCreate[j].Type
	})
	sort.Slice(r.AlertsToResolve, func(i, j int) bool {
		if r.AlertsToResolve[i].ProductID != r.AlertsToResolve[j].ProductID {
			return r.AlertsToResolve[i].ProductID < r.AlertsToResolve[j].ProductID
		}
		return r.AlertsToResolve[i].Type < r.AlertsToResolve[j].Type
	})
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].ProductID < r.Failures[j].ProductID })
}
