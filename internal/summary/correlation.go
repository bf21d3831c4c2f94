package summary

import (
	"fmt"
	"math"
	"sort"
	"time"

	"EnergyPulse/internal/domain/models"
)

// Correlate aligns the series on their common timestamps and computes the
// pairwise Pearson correlation of close prices.
func (a *Analyzer) Correlate(series []*models.PriceSeries) (*models.CorrelationMatrix, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("correlation needs at least 2 series, got %d: %w",
			len(series), models.ErrConfigInvalid)
	}

	byTS := make([]map[time.Time]float64, len(series))
	for i, s := range series {
		m := make(map[time.Time]float64, s.Len())
		for _, c := range s.Candles {
			m[c.Timestamp] = c.Close
		}
		byTS[i] = m
	}

	var common []time.Time
	for ts := range byTS[0] {
		shared := true
		for _, m := range byTS[1:] {
			if _, ok := m[ts]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, ts)
		}
	}
	if len(common) < minPoints {
		return nil, fmt.Errorf("%d aligned points across %d series, need %d: %w",
			len(common), len(series), minPoints, models.ErrInsufficientData)
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	aligned := make([][]float64, len(series))
	for i, m := range byTS {
		vals := make([]float64, len(common))
		for j, ts := range common {
			vals[j] = m[ts]
		}
		aligned[i] = vals
	}

	out := &models.CorrelationMatrix{
		Instruments: make([]string, len(series)),
		Matrix:      make([][]float64, len(series)),
		Points:      len(common),
	}
	for i, s := range series {
		out.Instruments[i] = s.Instrument
		out.Matrix[i] = make([]float64, len(series))
		out.Matrix[i][i] = 1
	}
	for i := range aligned {
		for j := i + 1; j < len(aligned); j++ {
			r := pearson(aligned[i], aligned[j])
			out.Matrix[i][j] = r
			out.Matrix[j][i] = r
		}
	}
	return out, nil
}

// Anomalies flags closes whose z-score against the whole-series mean exceeds
// the threshold. A flat series has no anomalies.
func (a *Analyzer) Anomalies(series *models.PriceSeries, threshold float64) ([]models.Anomaly, error) {
	n := series.Len()
	if n < minPoints {
		return nil, fmt.Errorf("series %s has %d points, need %d: %w",
			series.Instrument, n, minPoints, models.ErrInsufficientData)
	}

	closes := series.Closes()
	mu := mean(closes)
	var ss float64
	for _, c := range closes {
		d := c - mu
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 {
		return nil, nil
	}

	var out []models.Anomaly
	for _, c := range series.Candles {
		z := (c.Close - mu) / sd
		if math.Abs(z) > threshold {
			out = append(out, models.Anomaly{Timestamp: c.Timestamp, Close: c.Close, Score: z})
		}
	}
	return out, nil
}

// pearson returns 0 when either input has zero variance, keeping the matrix
// finite for flat series.
func pearson(x, y []float64) float64 {
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
