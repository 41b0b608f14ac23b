package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/invensight/stockpulse/internal/domain"
)

// Confidence labels attached to forecast results.
const (
	ConfidenceInsufficient = "insufficient"
	ConfidenceLow          = "low"
	ConfidenceMedium       = "medium"
	ConfidenceHigh         = "high"
)

// ErrMalformedHistory marks a demand history the forecaster cannot use
// (negative demand or out-of-order periods).
var ErrMalformedHistory = errors.New("malformed demand history")

// Forecaster projects next-period demand from a short rolling history.
// It is a pure function of its input window: identical input always yields
// identical output.
type Forecaster struct {
	window    int
	spreadMin float64
	spreadMax float64
}

// NewForecaster creates a forecaster with the given trailing window and
// confidence-spread bounds. Non-positive or inverted values fall back to the
// defaults (window 4, spread 0.10-0.30).
func NewForecaster(window int, spreadMin, spreadMax float64) *Forecaster {
	if window <= 0 {
		window = 4
	}
	if spreadMin <= 0 || spreadMax <= spreadMin {
		spreadMin, spreadMax = 0.10, 0.30
	}
	return &Forecaster{window: window, spreadMin: spreadMin, spreadMax: spreadMax}
}

// Forecast produces the point estimate and confidence band for the next
// periodsAhead periods. An empty history yields an explicit insufficient-data
// result, not an error; a malformed history yields ErrMalformedHistory.
func (f *Forecaster) Forecast(productID string, history []domain.DemandObservation, periodsAhead int) (domain.ForecastResult, error) {
	if periodsAhead < 1 {
		periodsAhead = 1
	}

	if len(history) == 0 {
		return domain.ForecastResult{
			ProductID:  productID,
			Confidence: ConfidenceInsufficient,
		}, nil
	}

	if err := validateHistory(productID, history); err != nil {
		return domain.ForecastResult{}, err
	}

	window := history
	if len(window) > f.window {
		window = window[len(window)-f.window:]
	}

	baseline := meanUnits(window)

	half := len(window) / 2
	firstHalfAvg := meanUnits(window[:half])
	secondHalfAvg := meanUnits(window[half:])

	trendPercent := 0.0
	if firstHalfAvg > 0 {
		trendPercent = (secondHalfAvg - firstHalfAvg) / firstHalfAvg * 100
	}

	growth := math.Pow(1+trendPercent/100, float64(periodsAhead))
	point := int(math.Round(baseline * growth))
	if point < 0 {
		point = 0
	}

	// Fewer observations widen the band.
	spread := f.spreadMax - 0.02*float64(len(history))
	if spread < f.spreadMin {
		spread = f.spreadMin
	}
	if spread > f.spreadMax {
		spread = f.spreadMax
	}

	return domain.ForecastResult{
		ProductID:     productID,
		PeriodLabel:   nextPeriodLabel(history, periodsAhead),
		PointEstimate: point,
		LowerBound:    float64(point) * (1 - spread),
		UpperBound:    float64(point) * (1 + spread),
		TrendPercent:  trendPercent,
		Confidence:    confidenceLabel(len(history)),
	}, nil
}

func validateHistory(productID string, history []domain.DemandObservation) error {
	for i, obs := range history {
		if obs.UnitsSold < 0 {
			return fmt.Errorf("%w: negative units %d at period %s for %s",
				ErrMalformedHistory, obs.UnitsSold, obs.PeriodStart.Format("2006-01-02"), productID)
		}
		if i > 0 && !obs.PeriodStart.After(history[i-1].PeriodStart) {
			return fmt.Errorf("%w: periods not strictly increasing at index %d for %s",
				ErrMalformedHistory, i, productID)
		}
	}
	return nil
}

func meanUnits(obs []domain.DemandObservation) float64 {
	if len(obs) == 0 {
		return 0
	}
	sum := 0
	for _, o := range obs {
		sum += o.UnitsSold
	}
	return float64(sum) / float64(len(obs))
}

func confidenceLabel(observations int) string {
	switch {
	case observations >= 8:
		return ConfidenceHigh
	case observations >= 4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// nextPeriodLabel projects the label of the forecast period from the spacing
// of the two most recent observations, defaulting to daily periods.
func nextPeriodLabel(history []domain.DemandObservation, periodsAhead int) string {
	last := history[len(history)-1].PeriodStart
	step := 24 * time.Hour
	if len(history) > 1 {
		if gap := last.Sub(history[len(history)-2].PeriodStart); gap > 0 {
			step = gap
		}
	}
	return last.Add(time.Duration(periodsAhead) * step).Format("2006-01-02")
}
