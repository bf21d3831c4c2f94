// Package forecast trains per-request regression models on engineered price
// features and projects a fixed horizon forward by iterative one-step
// prediction.
package forecast

import (
	"math"
	"time"
)

// lagSteps are the trailing close offsets used as lag features.
var lagSteps = []int{1, 2, 3, 5, 7, 14}

// maWindows are the moving-average windows used as technical features.
var maWindows = []int{5, 10, 20}

// minHistory is the number of prior closes a feature row needs. The 20-period
// moving average dominates the warmup.
const minHistory = 20

// featureDim is the total feature vector length:
// lags + calendar (dow/month sin+cos) + MA + MA ratio + vol(5,20) + pct(1,5) + RSI.
var featureDim = len(lagSteps) + 4 + len(maWindows)*2 + 2 + 2 + 1

// featuresAt builds the feature vector for predicting the close at time ts,
// given all closes strictly before that step. Requires len(closes) >= minHistory.
func featuresAt(closes []float64, ts time.Time) []float64 {
	t := len(closes)
	out := make([]float64, 0, featureDim)

	for _, lag := range lagSteps {
		out = append(out, closes[t-lag])
	}

	dow := float64(ts.Weekday())
	month := float64(ts.Month())
	out = append(out,
		math.Sin(2*math.Pi*dow/7), math.Cos(2*math.Pi*dow/7),
		math.Sin(2*math.Pi*month/12), math.Cos(2*math.Pi*month/12),
	)

	last := closes[t-1]
	for _, w := range maWindows {
		ma := mean(closes[t-w:])
		out = append(out, ma)
		if ma != 0 {
			out = append(out, last/ma)
		} else {
			out = append(out, 0)
		}
	}

	out = append(out, sampleStd(closes[t-5:]), sampleStd(closes[t-20:]))

	pct1, pct5 := 0.0, 0.0
	if closes[t-2] != 0 {
		pct1 = last/closes[t-2] - 1
	}
	if closes[t-6] != 0 {
		pct5 = last/closes[t-6] - 1
	}
	out = append(out, pct1, pct5)

	out = append(out, trailingRSI(closes, 14))
	return out
}

// buildTraining assembles the design matrix and target vector. Row i predicts
// closes[minHistory+i] from everything before it.
func buildTraining(closes []float64, timestamps []time.Time) (x [][]float64, y []float64) {
	n := len(closes)
	if n <= minHistory {
		return nil, nil
	}
	x = make([][]float64, 0, n-minHistory)
	y = make([]float64, 0, n-minHistory)
	for t := minHistory; t < n; t++ {
		x = append(x, featuresAt(closes[:t], timestamps[t]))
		y = append(y, closes[t])
	}
	return x, y
}

// trailingRSI computes RSI over the last w deltas of closes.
func trailingRSI(closes []float64, w int) float64 {
	t := len(closes)
	if t < w+1 {
		return 50
	}
	var gain, loss float64
	for i := t - w; i < t; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	default:
		rs := gain / loss
		return 100 - 100/(1+rs)
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// scaler standardizes features to zero mean and unit variance, fit on the
// training rows only. Zero-variance features map to zero.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(x [][]float64) *scaler {
	if len(x) == 0 {
		return &scaler{}
	}
	dim := len(x[0])
	s := &scaler{mean: make([]float64, dim), std: make([]float64, dim)}
	for j := 0; j < dim; j++ {
		var sum float64
		for _, row := range x {
			sum += row[j]
		}
		s.mean[j] = sum / float64(len(x))
	}
	for j := 0; j < dim; j++ {
		var ss float64
		for _, row := range x {
			d := row[j] - s.mean[j]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(len(x)))
		if sd == 0 {
			sd = 1
		}
		s.std[j] = sd
	}
	return s
}

func (s *scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

func (s *scaler) transformAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.transform(row)
	}
	return out
}
