package summary

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
)

func buildSeries(t *testing.T, closes []float64) *models.PriceSeries {
	t.Helper()
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    500,
		}
	}
	series, err := models.NewPriceSeries("WTI", "test", "1d", candles)
	require.NoError(t, err)
	return series
}

func TestSummarizeTooShort(t *testing.T) {
	_, err := New().Summarize(buildSeries(t, []float64{80}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestSummarizeUptrend(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 60 + float64(i)
	}
	series := buildSeries(t, closes)

	s, err := New().Summarize(series)
	require.NoError(t, err)

	assert.Equal(t, "WTI", s.Instrument)
	assert.Equal(t, 99.0, s.CurrentPrice)
	assert.Equal(t, models.TrendUp, s.Trend)
	assert.Greater(t, s.Volatility, 0.0)

	// Support/resistance come from the trailing 20 closes.
	assert.Equal(t, 80.0, s.Support)
	assert.Equal(t, 99.0, s.Resistance)

	require.Len(t, s.Changes, 3)
	assert.Equal(t, 1, s.Changes[0].Periods)
	assert.InDelta(t, 1.0, s.Changes[0].Change, 1e-9)
	assert.Equal(t, 30, s.Changes[2].Periods)
	assert.InDelta(t, 30.0, s.Changes[2].Change, 1e-9)
}

func TestSummarizeDowntrendAndSideways(t *testing.T) {
	down := make([]float64, 40)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	s, err := New().Summarize(buildSeries(t, down))
	require.NoError(t, err)
	assert.Equal(t, models.TrendDown, s.Trend)

	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 75
	}
	s, err = New().Summarize(buildSeries(t, flat))
	require.NoError(t, err)
	assert.Equal(t, models.TrendSideways, s.Trend)
	assert.Equal(t, 0.0, s.Volatility)
}

func TestSummarizeShortSeriesSkipsLongChanges(t *testing.T) {
	s, err := New().Summarize(buildSeries(t, []float64{70, 71, 72, 73, 74}))
	require.NoError(t, err)

	// Only the 1-step change fits in 5 points.
	require.Len(t, s.Changes, 1)
	assert.Equal(t, 1, s.Changes[0].Periods)
	assert.Equal(t, models.TrendSideways, s.Trend)
	assert.Equal(t, 70.0, s.Support)
	assert.Equal(t, 74.0, s.Resistance)
}
