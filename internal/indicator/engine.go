// Package indicator derives technical analysis series from price snapshots.
// All computations are pure functions of their inputs: same series and
// requests always produce the same IndicatorSet.
package indicator

import (
	"math"

	"EnergyPulse/internal/domain/models"
)

// Engine computes indicator series. The zero value is not usable; call New.
type Engine struct {
	bollingerK float64
}

// Option configures Engine.
type Option func(*Engine)

// WithBollingerK sets the Bollinger band width in standard deviations.
func WithBollingerK(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.bollingerK = k
		}
	}
}

// New creates an indicator engine.
func New(opts ...Option) *Engine {
	e := &Engine{bollingerK: 2.0}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute derives the requested indicators from one series snapshot.
// Every output series has the same length as the input; positions where the
// trailing window is not yet filled hold NaN. A window longer than the series
// yields an all-NaN series, not an error.
func (e *Engine) Compute(series *models.PriceSeries, requests []models.IndicatorRequest) *models.IndicatorSet {
	closes := series.Closes()
	out := &models.IndicatorSet{
		Instrument: series.Instrument,
		Timestamps: series.Timestamps(),
		Series:     make(map[string][]float64, len(requests)),
	}

	for _, req := range requests {
		out.Series[req.Name()] = e.compute(req, closes)
	}
	return out
}

func (e *Engine) compute(req models.IndicatorRequest, closes []float64) []float64 {
	switch req.Kind {
	case models.IndicatorSMA:
		return SMA(closes, req.Window)
	case models.IndicatorEMA:
		return EMA(closes, req.Window)
	case models.IndicatorRSI:
		return RSI(closes, req.Window)
	case models.IndicatorBollingerUpper:
		upper, _, _ := Bollinger(closes, req.Window, e.bollingerK)
		return upper
	case models.IndicatorBollingerMiddle:
		_, middle, _ := Bollinger(closes, req.Window, e.bollingerK)
		return middle
	case models.IndicatorBollingerLower:
		_, _, lower := Bollinger(closes, req.Window, e.bollingerK)
		return lower
	case models.IndicatorVolatility:
		return Volatility(closes, req.Window)
	case models.IndicatorROC:
		return ROC(closes, req.Window)
	}
	return nanSlice(len(closes))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the simple moving average over a trailing window.
// The first w-1 points are NaN.
func SMA(values []float64, w int) []float64 {
	out := nanSlice(len(values))
	if w < 1 || w > len(values) {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= w {
			sum -= values[i-w]
		}
		if i >= w-1 {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// EMA computes the exponential moving average, seeded with the SMA of the
// first w points. The first w-1 points are NaN.
func EMA(values []float64, w int) []float64 {
	out := nanSlice(len(values))
	if w < 1 || w > len(values) {
		return out
	}
	seed := 0.0
	for _, v := range values[:w] {
		seed += v
	}
	prev := seed / float64(w)
	out[w-1] = prev
	alpha := 2.0 / (float64(w) + 1.0)
	for i := w; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RSI computes the Relative Strength Index using the average gain/loss ratio
// over a trailing window, scaled to [0,100]. The first w points are NaN since
// w deltas are needed. A flat window (no losses, no gains) reads as 50.
func RSI(values []float64, w int) []float64 {
	out := nanSlice(len(values))
	if w < 1 || w >= len(values) {
		return out
	}
	for i := w; i < len(values); i++ {
		var gain, loss float64
		for j := i - w + 1; j <= i; j++ {
			delta := values[j] - values[j-1]
			if delta > 0 {
				gain += delta
			} else {
				loss -= delta
			}
		}
		switch {
		case loss == 0 && gain == 0:
			out[i] = 50
		case loss == 0:
			out[i] = 100
		default:
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// Bollinger computes upper/middle/lower bands: SMA ± k sample standard
// deviations over the trailing window.
func Bollinger(values []float64, w int, k float64) (upper, middle, lower []float64) {
	n := len(values)
	upper, middle, lower = nanSlice(n), nanSlice(n), nanSlice(n)
	if w < 2 || w > n {
		return upper, middle, lower
	}
	middle = SMA(values, w)
	for i := w - 1; i < n; i++ {
		sd := stddev(values[i-w+1 : i+1])
		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
	}
	return upper, middle, lower
}

// Volatility computes the annualized rolling standard deviation of simple
// returns, assuming 252 trading periods per year. The first w points are NaN.
func Volatility(values []float64, w int) []float64 {
	out := nanSlice(len(values))
	if w < 2 || w >= len(values) {
		return out
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = values[i]/values[i-1] - 1
		}
	}
	scale := math.Sqrt(252)
	for i := w; i < len(values); i++ {
		out[i] = stddev(returns[i-w:i]) * scale
	}
	return out
}

// ROC computes the percent rate of change over w periods.
func ROC(values []float64, w int) []float64 {
	out := nanSlice(len(values))
	if w < 1 || w >= len(values) {
		return out
	}
	for i := w; i < len(values); i++ {
		if values[i-w] != 0 {
			out[i] = (values[i] - values[i-w]) / values[i-w] * 100
		}
	}
	return out
}

// stddev returns the sample standard deviation.
func stddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
