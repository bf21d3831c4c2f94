package summary

import (
	"fmt"
	"math"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/internal/indicator"
)

const (
	shortWindow      = 10
	longWindow       = 20
	levelWindow      = 20
	volatilityWindow = 20
	minPoints        = 2
)

// changePeriods are the trailing lookbacks reported in the summary, in steps.
var changePeriods = []int{1, 7, 30}

// Analyzer condenses a price series into the per-instrument header view.
type Analyzer struct{}

// New creates a summary analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Summarize computes current price, trailing changes, annualized volatility,
// the moving-average trend label and recent support/resistance levels.
func (a *Analyzer) Summarize(series *models.PriceSeries) (*models.MarketSummary, error) {
	n := series.Len()
	if n < minPoints {
		return nil, fmt.Errorf("series %s has %d points, need %d: %w",
			series.Instrument, n, minPoints, models.ErrInsufficientData)
	}

	closes := series.Closes()
	last, _ := series.Last()

	summary := &models.MarketSummary{
		Instrument:   series.Instrument,
		Timestamp:    last.Timestamp,
		CurrentPrice: last.Close,
		Trend:        trend(closes),
	}

	for _, p := range changePeriods {
		if p >= n {
			continue
		}
		prev := closes[n-1-p]
		change := last.Close - prev
		pct := 0.0
		if prev != 0 {
			pct = change / prev * 100
		}
		summary.Changes = append(summary.Changes, models.PriceChange{
			Periods:   p,
			Change:    change,
			PctChange: pct,
		})
	}

	if vol := indicator.Volatility(closes, volatilityWindow); len(vol) > 0 {
		if v := vol[len(vol)-1]; !math.IsNaN(v) {
			summary.Volatility = v
		}
	}

	summary.Support, summary.Resistance = levels(closes, levelWindow)
	return summary, nil
}

// trend compares the short and long moving averages; within 0.5% of each
// other the market is labelled sideways.
func trend(closes []float64) models.Trend {
	n := len(closes)
	if n < longWindow {
		return models.TrendSideways
	}
	short := mean(closes[n-shortWindow:])
	long := mean(closes[n-longWindow:])
	if long == 0 {
		return models.TrendSideways
	}
	switch diff := (short - long) / long; {
	case diff > 0.005:
		return models.TrendUp
	case diff < -0.005:
		return models.TrendDown
	}
	return models.TrendSideways
}

// levels returns the rolling min and max of the trailing window.
func levels(closes []float64, window int) (support, resistance float64) {
	n := len(closes)
	if window > n {
		window = n
	}
	tail := closes[n-window:]
	support, resistance = tail[0], tail[0]
	for _, c := range tail[1:] {
		support = math.Min(support, c)
		resistance = math.Max(resistance, c)
	}
	return support, resistance
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
