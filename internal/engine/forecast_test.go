package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
)

func weeklyHistory(start time.Time, units ...int) []domain.DemandObservation {
	obs := make([]domain.DemandObservation, 0, len(units))
	for i, u := range units {
		obs = append(obs, domain.DemandObservation{
			ProductID:   "SKU-001",
			PeriodStart: start.AddDate(0, 0, 7*i),
			UnitsSold:   u,
		})
	}
	return obs
}

func defaultForecaster() *Forecaster {
	return NewForecaster(4, 0.10, 0.30)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestForecast_RisingTrend(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	history := weeklyHistory(start, 10, 12, 11, 15)

	got, err := defaultForecaster().Forecast("SKU-001", history, 1)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if got.PointEstimate != 14 {
		t.Errorf("PointEstimate = %d, want 14", got.PointEstimate)
	}
	if !approxEqual(got.TrendPercent, 18.18, 0.01) {
		t.Errorf("TrendPercent = %.4f, want ~18.18", got.TrendPercent)
	}
	if !approxEqual(got.LowerBound, 10.92, 0.001) {
		t.Errorf("LowerBound = %.4f, want 10.92", got.LowerBound)
	}
	if !approxEqual(got.UpperBound, 17.08, 0.001) {
		t.Errorf("UpperBound = %.4f, want 17.08", got.UpperBound)
	}
	if got.Confidence != ConfidenceMedium {
		t.Errorf("Confidence = %q, want %q", got.Confidence, ConfidenceMedium)
	}
	if got.PeriodLabel != "2026-02-02" {
		t.Errorf("PeriodLabel = %q, want 2026-02-02", got.PeriodLabel)
	}
}

func TestForecast_Deterministic(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	history := weeklyHistory(start, 8, 9, 7, 10, 12, 11)

	f := defaultForecaster()
	first, err := f.Forecast("SKU-001", history, 1)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := f.Forecast("SKU-001", history, 1)
		if err != nil {
			t.Fatalf("Forecast() error on run %d = %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d diverged: got %+v, want %+v", i, again, first)
		}
	}
}

func TestForecast_BoundsBracketPoint(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	histories := [][]int{
		{5},
		{5, 5},
		{3, 9, 6},
		{20, 18, 25, 22, 30, 28, 31, 29},
	}

	f := defaultForecaster()
	for _, units := range histories {
		got, err := f.Forecast("SKU-001", weeklyHistory(start, units...), 1)
		if err != nil {
			t.Fatalf("Forecast(%v) error = %v", units, err)
		}
		point := float64(got.PointEstimate)
		if got.LowerBound > point || point > got.UpperBound {
			t.Errorf("Forecast(%v) bounds [%.2f, %.2f] do not bracket point %d",
				units, got.LowerBound, got.UpperBound, got.PointEstimate)
		}
	}
}

func TestForecast_EmptyHistory(t *testing.T) {
	got, err := defaultForecaster().Forecast("SKU-001", nil, 1)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if got.Confidence != ConfidenceInsufficient {
		t.Errorf("Confidence = %q, want %q", got.Confidence, ConfidenceInsufficient)
	}
	if got.PointEstimate != 0 {
		t.Errorf("PointEstimate = %d, want 0", got.PointEstimate)
	}
}

func TestForecast_MalformedHistory(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("negative units", func(t *testing.T) {
		history := weeklyHistory(start, 10, -3, 11)
		if _, err := defaultForecaster().Forecast("SKU-001", history, 1); !errors.Is(err, ErrMalformedHistory) {
			t.Errorf("error = %v, want ErrMalformedHistory", err)
		}
	})

	t.Run("periods not increasing", func(t *testing.T) {
		history := weeklyHistory(start, 10, 12)
		history[1].PeriodStart = history[0].PeriodStart
		if _, err := defaultForecaster().Forecast("SKU-001", history, 1); !errors.Is(err, ErrMalformedHistory) {
			t.Errorf("error = %v, want ErrMalformedHistory", err)
		}
	})
}

func TestForecast_ConfidenceTiers(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		observations int
		want         string
	}{
		{1, ConfidenceLow},
		{3, ConfidenceLow},
		{4, ConfidenceMedium},
		{7, ConfidenceMedium},
		{8, ConfidenceHigh},
		{12, ConfidenceHigh},
	}

	f := defaultForecaster()
	for _, tt := range tests {
		units := make([]int, tt.observations)
		for i := range units {
			units[i] = 10
		}
		got, err := f.Forecast("SKU-001", weeklyHistory(start, units...), 1)
		if err != nil {
			t.Fatalf("Forecast(%d obs) error = %v", tt.observations, err)
		}
		if got.Confidence != tt.want {
			t.Errorf("Forecast(%d obs) confidence = %q, want %q", tt.observations, got.Confidence, tt.want)
		}
	}
}

func TestForecast_SpreadNarrowsWithHistory(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	f := defaultForecaster()

	spreadFor := func(n int) float64 {
		units := make([]int, n)
		for i := range units {
			units[i] = 100
		}
		got, err := f.Forecast("SKU-001", weeklyHistory(start, units...), 1)
		if err != nil {
			t.Fatalf("Forecast(%d obs) error = %v", n, err)
		}
		return (got.UpperBound - float64(got.PointEstimate)) / float64(got.PointEstimate)
	}

	if s := spreadFor(2); !approxEqual(s, 0.26, 0.001) {
		t.Errorf("spread(2) = %.4f, want 0.26", s)
	}
	if s := spreadFor(4); !approxEqual(s, 0.22, 0.001) {
		t.Errorf("spread(4) = %.4f, want 0.22", s)
	}
	if s := spreadFor(12); !approxEqual(s, 0.10, 0.001) {
		t.Errorf("spread(12) = %.4f, want floor 0.10", s)
	}
}

func TestForecast_MultiplePeriodsAheadCompounds(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	history := weeklyHistory(start, 10, 12, 11, 15)

	f := defaultForecaster()
	one, err := f.Forecast("SKU-001", history, 1)
	if err != nil {
		t.Fatalf("Forecast(1) error = %v", err)
	}
	two, err := f.Forecast("SKU-001", history, 2)
	if err != nil {
		t.Fatalf("Forecast(2) error = %v", err)
	}
	if two.PointEstimate <= one.PointEstimate {
		t.Errorf("rising trend should compound: one=%d two=%d", one.PointEstimate, two.PointEstimate)
	}
	if two.PeriodLabel != "2026-02-09" {
		t.Errorf("PeriodLabel = %q, want 2026-02-09", two.PeriodLabel)
	}
}

func TestForecast_DecliningTrendFloorsAtZero(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	history := weeklyHistory(start, 40, 30, 1, 0)

	got, err := defaultForecaster().Forecast("SKU-001", history, 3)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if got.PointEstimate < 0 {
		t.Errorf("PointEstimate = %d, must not go negative", got.PointEstimate)
	}
	if got.LowerBound < 0 {
		t.Errorf("LowerBound = %.2f, must not go negative", got.LowerBound)
	}
}
