package indicator

import (
	"math"
	"testing"
	"time"

	"EnergyPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearSeries(t *testing.T, n int, start float64) *models.PriceSeries {
	t.Helper()
	candles := make([]models.Candle, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := start + float64(i)
		candles[i] = models.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price, High: price + 0.5, Low: price - 0.5, Close: price,
			Volume: 1000,
		}
	}
	s, err := models.NewPriceSeries("WTI", "test", "1d", candles)
	require.NoError(t, err)
	return s
}

func TestSMALengthAndWarmup(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		window int
	}{
		{"short window", 30, 5},
		{"window equals length", 30, 30},
		{"window one", 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := linearSeries(t, tt.n, 50)
			out := SMA(s.Closes(), tt.window)
			require.Len(t, out, tt.n)
			for i := 0; i < tt.window-1; i++ {
				assert.True(t, math.IsNaN(out[i]), "index %d should be NaN", i)
			}
			for i := tt.window - 1; i < tt.n; i++ {
				assert.False(t, math.IsNaN(out[i]), "index %d should be defined", i)
			}
		})
	}
}

func TestSMALinearRamp(t *testing.T) {
	// 30 daily closes rising linearly 50..79: SMA_5 at the last point is the
	// mean of 75,76,77,78,79 = 77.
	s := linearSeries(t, 30, 50)
	out := SMA(s.Closes(), 5)
	assert.InDelta(t, 77.0, out[len(out)-1], 1e-9)
}

func TestSMAWindowLongerThanSeries(t *testing.T) {
	s := linearSeries(t, 10, 50)
	out := SMA(s.Closes(), 20)
	require.Len(t, out, 10)
	for i, v := range out {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}
}

func TestRSIBounds(t *testing.T) {
	// A noisy series: RSI must stay within [0,100] wherever defined.
	closes := []float64{50, 52, 51, 55, 54, 57, 53, 58, 56, 60, 59, 61, 58, 62, 64, 63, 65, 61, 66, 68}
	out := RSI(closes, 14)
	require.Len(t, out, len(closes))
	defined := 0
	for _, v := range out {
		if math.IsNaN(v) {
			continue
		}
		defined++
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	assert.Greater(t, defined, 0)
}

func TestRSIMonotonicSeries(t *testing.T) {
	s := linearSeries(t, 30, 50)
	out := RSI(s.Closes(), 14)
	// strictly rising closes have zero losses
	assert.InDelta(t, 100.0, out[len(out)-1], 1e-9)

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	down := RSI(falling, 14)
	assert.InDelta(t, 0.0, down[len(down)-1], 1e-9)
}

func TestEMAConvergesToConstant(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 42
	}
	out := EMA(closes, 10)
	assert.True(t, math.IsNaN(out[8]))
	assert.InDelta(t, 42.0, out[49], 1e-9)
}

func TestBollingerBandsOrdering(t *testing.T) {
	closes := []float64{50, 52, 51, 55, 54, 57, 53, 58, 56, 60, 59, 61, 58, 62, 64, 63, 65, 61, 66, 68, 67, 70}
	upper, middle, lower := Bollinger(closes, 20, 2)
	for i := 19; i < len(closes); i++ {
		assert.Greater(t, upper[i], middle[i])
		assert.Less(t, lower[i], middle[i])
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 30
	}
	upper, middle, lower := Bollinger(closes, 20, 2)
	assert.InDelta(t, 30.0, upper[24], 1e-9)
	assert.InDelta(t, 30.0, middle[24], 1e-9)
	assert.InDelta(t, 30.0, lower[24], 1e-9)
}

func TestEngineComputeAlignment(t *testing.T) {
	s := linearSeries(t, 40, 50)
	e := New(WithBollingerK(2))
	set := e.Compute(s, []models.IndicatorRequest{
		{Kind: models.IndicatorSMA, Window: 20},
		{Kind: models.IndicatorRSI, Window: 14},
		{Kind: models.IndicatorBollingerUpper, Window: 20},
	})
	require.Len(t, set.Timestamps, 40)
	require.Contains(t, set.Series, "SMA_20")
	require.Contains(t, set.Series, "RSI_14")
	require.Contains(t, set.Series, "BB_UPPER_20")
	for name, vals := range set.Series {
		assert.Len(t, vals, 40, "series %s misaligned", name)
	}

	last, ok := set.Last("SMA_20")
	require.True(t, ok)
	// mean of the last 20 of 50..89
	assert.InDelta(t, 79.5, last, 1e-9)
}

func TestROCAndVolatility(t *testing.T) {
	s := linearSeries(t, 30, 50)
	roc := ROC(s.Closes(), 5)
	require.Len(t, roc, 30)
	assert.True(t, math.IsNaN(roc[4]))
	// (79-74)/74*100
	assert.InDelta(t, 5.0/74.0*100, roc[29], 1e-9)

	vol := Volatility(s.Closes(), 10)
	require.Len(t, vol, 30)
	assert.False(t, math.IsNaN(vol[29]))
	assert.GreaterOrEqual(t, vol[29], 0.0)
}
