// Package memory provides in-memory store implementations. They back the
// service and API tests so the evaluation path can run without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/repository"
)

// InventoryStore is a mutex-guarded in-memory InventoryStore.
type InventoryStore struct {
	mu      sync.RWMutex
	metrics map[string]domain.StockMetrics
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{metrics: make(map[string]domain.StockMetrics)}
}

// Verify interface compliance
var _ repository.InventoryStore = (*InventoryStore)(nil)

func (s *InventoryStore) ListMetrics(ctx context.Context) ([]domain.StockMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })

	return out, nil
}

func (s *InventoryStore) GetMetrics(ctx context.Context, productID string) (*domain.StockMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[productID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *InventoryStore) UpsertMetrics(ctx context.Context, m domain.StockMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[m.ProductID] = m
	return nil
}

// DemandStore is an in-memory DemandStore that enforces the retention window
// on append, keeping only the most recent observations per product.
type DemandStore struct {
	mu        sync.RWMutex
	retention int
	histories map[string][]domain.DemandObservation
}

func NewDemandStore(retention int) *DemandStore {
	if retention <= 0 {
		retention = 12
	}
	return &DemandStore{
		retention: retention,
		histories: make(map[string][]domain.DemandObservation),
	}
}

var _ repository.DemandStore = (*DemandStore)(nil)

func (s *DemandStore) History(ctx context.Context, productID string, window int) ([]domain.DemandObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[productID]
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	out := make([]domain.DemandObservation, len(history))
	copy(out, history)
	return out, nil
}

func (s *DemandStore) Histories(ctx context.Context, window int) (map[string][]domain.DemandObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.DemandObservation, len(s.histories))
	for id, history := range s.histories {
		if window > 0 && len(history) > window {
			history = history[len(history)-window:]
		}
		cp := make([]domain.DemandObservation, len(history))
		copy(cp, history)
		out[id] = cp
	}

	return out, nil
}

func (s *DemandStore) Append(ctx context.Context, obs domain.DemandObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.histories[obs.ProductID]

	// Append-only: ignore a period that was already recorded.
	for _, existing := range history {
		if existing.PeriodStart.Equal(obs.PeriodStart) {
			return nil
		}
	}

	history = append(history, obs)
	sort.Slice(history, func(i, j int) bool { return history[i].PeriodStart.Before(history[j].PeriodStart) })
	if len(history) > s.retention {
		history = history[len(history)-s.retention:]
	}
	s.histories[obs.ProductID] = history

	return nil
}

// AlertStore is an in-memory AlertStore.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[string]domain.Alert // keyed by alert ID
}

func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[string]domain.Alert)}
}

var _ repository.AlertStore = (*AlertStore)(nil)

func (s *AlertStore) OpenAlerts(ctx context.Context) (map[string][]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.Alert)
	for _, a := range s.alerts {
		if a.Open() {
			out[a.ProductID] = append(out[a.ProductID], a)
		}
	}
	for id := range out {
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].CreatedAt.Before(out[id][j].CreatedAt) })
	}

	return out, nil
}

func (s *AlertStore) OpenAlertsForProduct(ctx context.Context, productID string) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Alert
	for _, a := range s.alerts {
		if a.Open() && a.ProductID == productID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (s *AlertStore) Apply(ctx context.Context, creates []domain.Alert, resolves []domain.Alert, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range resolves {
		stored, ok := s.alerts[a.ID]
		if ok && stored.Open() {
			t := resolvedAt
			stored.ResolvedAt = &t
			s.alerts[a.ID] = stored
		}
	}

	for _, a := range creates {
		if s.hasOpenLocked(a.ProductID, a.Type) {
			continue
		}
		s.alerts[a.ID] = a
	}

	return nil
}

func (s *AlertStore) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(filter.ProductIDs))
	for _, id := range filter.ProductIDs {
		wanted[id] = true
	}

	var out []domain.Alert
	for _, a := range s.alerts {
		if len(wanted) > 0 && !wanted[a.ProductID] {
			continue
		}
		if filter.Type != "" && string(a.Type) != filter.Type {
			continue
		}
		if !filter.IncludeResolved && !a.Open() {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Priority.Equal(out[j].Priority) {
			return out[i].Priority.GreaterThan(out[j].Priority)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(out) {
			return nil, total, nil
		}
		end := start + filter.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}

	return out, total, nil
}

func (s *AlertStore) hasOpenLocked(productID string, t domain.AlertType) bool {
	for _, a := range s.alerts {
		if a.Open() && a.ProductID == productID && a.Type == t {
			return true
		}
	}
	return false
}
