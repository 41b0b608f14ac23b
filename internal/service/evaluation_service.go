package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/invensight/stockpulse/internal/cache"
	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/engine"
	"github.com/invensight/stockpulse/internal/metrics"
	"github.com/invensight/stockpulse/internal/repository"
)

// EvaluationService wires the engine to its external collaborators: the
// inventory, demand and alert stores, the summary cache and the metrics.
type EvaluationService struct {
	inventory       repository.InventoryStore
	demand          repository.DemandStore
	alerts          repository.AlertStore
	engine          *engine.Engine
	cache           cache.SummaryCache
	metrics         *metrics.EngineMetrics
	retentionWindow int

	mu        sync.RWMutex
	lastBatch *domain.BatchResult
}

func NewEvaluationService(
	inventory repository.InventoryStore,
	demand repository.DemandStore,
	alerts repository.AlertStore,
	eng *engine.Engine,
	cacheImpl cache.SummaryCache,
	m *metrics.EngineMetrics,
	retentionWindow int,
) *EvaluationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	if retentionWindow <= 0 {
		retentionWindow = 12
	}
	return &EvaluationService{
		inventory:       inventory,
		demand:          demand,
		alerts:          alerts,
		engine:          eng,
		cache:           cacheImpl,
		metrics:         m,
		retentionWindow: retentionWindow,
	}
}

// RunEvaluation loads all inputs, runs the engine over the full product set
// and applies the resulting alert changes.
func (s *EvaluationService) RunEvaluation(ctx context.Context) (*domain.BatchResult, error) {
	started := time.Now()

	snapshots, err := s.inventory.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock metrics: %w", err)
	}

	histories, err := s.demand.Histories(ctx, s.retentionWindow)
	if err != nil {
		return nil, fmt.Errorf("load demand histories: %w", err)
	}

	openAlerts, err := s.alerts.OpenAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open alerts: %w", err)
	}

	batch, err := s.engine.EvaluateAll(ctx, engine.Input{
		Snapshots:  snapshots,
		Histories:  histories,
		OpenAlerts: openAlerts,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}

	if err := s.alerts.Apply(ctx, batch.AlertsToCreate, batch.AlertsToResolve, batch.EvaluatedAt); err != nil {
		return nil, fmt.Errorf("apply alert changes: %w", err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("evaluation: cache invalidate failed")
	}

	s.recordMetrics(batch, time.Since(started))

	s.mu.Lock()
	s.lastBatch = batch
	s.mu.Unlock()

	log.Info().
		Int("products", batch.ProductCount).
		Int("recommendations", len(batch.Recommendations)).
		Int("alerts_created", len(batch.AlertsToCreate)).
		Int("alerts_resolved", len(batch.AlertsToResolve)).
		Int("failures", len(batch.Failures)).
		Dur("took", time.Since(started)).
		Msg("evaluation run completed")

	return batch, nil
}

// EvaluateProduct runs the pipeline for a single product on demand, typically
// after a stock-affecting mutation.
func (s *EvaluationService) EvaluateProduct(ctx context.Context, productID string) (*domain.BatchResult, error) {
	m, err := s.inventory.GetMetrics(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load stock metrics for %s: %w", productID, err)
	}
	if m == nil {
		return nil, fmt.Errorf("unknown product %s", productID)
	}

	history, err := s.demand.History(ctx, productID, s.retentionWindow)
	if err != nil {
		return nil, fmt.Errorf("load demand history for %s: %w", productID, err)
	}

	open, err := s.alerts.OpenAlertsForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load open alerts for %s: %w", productID, err)
	}

	batch, err := s.engine.EvaluateAll(ctx, engine.Input{
		Snapshots:  []domain.StockMetrics{*m},
		Histories:  map[string][]domain.DemandObservation{productID: history},
		OpenAlerts: map[string][]domain.Alert{productID: open},
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate product %s: %w", productID, err)
	}

	if err := s.alerts.Apply(ctx, batch.AlertsToCreate, batch.AlertsToResolve, batch.EvaluatedAt); err != nil {
		return nil, fmt.Errorf("apply alert changes for %s: %w", productID, err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("evaluation: cache invalidate failed")
	}

	return batch, nil
}

// GetStatuses classifies the current snapshots on demand. Snapshots the
// classifier rejects are skipped.
func (s *EvaluationService) GetStatuses(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error) {
	snapshots, err := s.inventory.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock metrics: %w", err)
	}

	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}

	statuses := make([]domain.ProductStatus, 0, len(snapshots))
	for _, m := range snapshots {
		if len(wanted) > 0 && !wanted[m.ProductID] {
			continue
		}
		status, urgency, err := engine.Classify(m)
		if err != nil {
			log.Warn().Err(err).Str("product_id", m.ProductID).Msg("skipping unclassifiable snapshot")
			continue
		}
		statuses = append(statuses, domain.ProductStatus{
			ProductID:    m.ProductID,
			ProductName:  m.ProductName,
			CurrentStock: m.CurrentStock,
			Status:       status,
			Urgency:      urgency,
		})
	}

	return statuses, nil
}

// GetSummary returns product counts per status, served from cache when warm.
func (s *EvaluationService) GetSummary(ctx context.Context) ([]domain.StatusSummary, error) {
	if summaries, ok, err := s.cache.GetSummary(ctx); err == nil && ok {
		return summaries, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("evaluation: cache get summary failed")
	}

	statuses, err := s.GetStatuses(ctx, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.StockStatus]int)
	for _, st := range statuses {
		counts[st.Status]++
	}

	summaries := make([]domain.StatusSummary, 0, len(counts))
	for status, count := range counts {
		summaries = append(summaries, domain.StatusSummary{Status: status, Count: count})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Status < summaries[j].Status })

	if err := s.cache.SetSummary(ctx, summaries); err != nil {
		log.Warn().Err(err).Msg("evaluation: cache set summary failed")
	}

	return summaries, nil
}

// GetRecommendations returns the recommendations from the most recent run.
func (s *EvaluationService) GetRecommendations(ctx context.Context) ([]domain.ReplenishmentRecommendation, error) {
	s.mu.RLock()
	last := s.lastBatch
	s.mu.RUnlock()

	if last == nil {
		batch, err := s.RunEvaluation(ctx)
		if err != nil {
			return nil, err
		}
		last = batch
	}

	return last.Recommendations, nil
}

// GetForecast produces an on-demand projection for one product.
func (s *EvaluationService) GetForecast(ctx context.Context, productID string, periodsAhead int) (*domain.ForecastResult, error) {
	history, err := s.demand.History(ctx, productID, s.retentionWindow)
	if err != nil {
		return nil, fmt.Errorf("load demand history for %s: %w", productID, err)
	}

	fc, err := s.engine.Forecaster().Forecast(productID, history, periodsAhead)
	if err != nil {
		return nil, err
	}

	return &fc, nil
}

// GetAlerts lists stored alerts.
func (s *EvaluationService) GetAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, int, error) {
	return s.alerts.List(ctx, filter)
}

func (s *EvaluationService) recordMetrics(batch *domain.BatchResult, took time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.EvaluationsTotal.Inc()
	s.metrics.ProductsEvaluated.Add(float64(batch.ProductCount))
	for _, a := range batch.AlertsToCreate {
		s.metrics.AlertsCreated.WithLabelValues(string(a.Type)).Inc()
	}
	s.metrics.AlertsResolved.Add(float64(len(batch.AlertsToResolve)))
	for _, f := range batch.Failures {
		s.metrics.ItemFailures.WithLabelValues(f.Stage).Inc()
	}
	s.metrics.EvaluationSeconds.Observe(took.Seconds())
}
