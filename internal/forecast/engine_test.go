package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
)

func dailySeries(t *testing.T, instrument string, closes []float64) *models.PriceSeries {
	t.Helper()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		}
	}
	series, err := models.NewPriceSeries(instrument, "test", "1d", candles)
	require.NoError(t, err)
	return series
}

func TestForecastInsufficientData(t *testing.T) {
	closes := make([]float64, MinLookback-1)
	for i := range closes {
		closes[i] = 70 + float64(i)
	}
	series := dailySeries(t, "WTI", closes)

	_, err := New().Forecast(context.Background(), series, 5, models.ModelLinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestForecastConstantSeriesFailsTraining(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 75.0
	}
	series := dailySeries(t, "WTI", closes)

	_, err := New().Forecast(context.Background(), series, 5, models.ModelLinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTrainingFailed))
}

func TestForecastRejectsUnknownModel(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 70 + 0.3*float64(i)
	}
	series := dailySeries(t, "WTI", closes)

	_, err := New().Forecast(context.Background(), series, 5, models.ModelKind("arima"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))

	_, err = New().Forecast(context.Background(), series, 0, models.ModelLinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))
}

func TestForecastLinearTrend(t *testing.T) {
	// y = 60 + 0.5*i: a linear model should extend the ramp closely.
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 60 + 0.5*float64(i)
	}
	series := dailySeries(t, "BRENT", closes)

	res, err := New().Forecast(context.Background(), series, 3, models.ModelLinear)
	require.NoError(t, err)
	require.Len(t, res.Points, 3)

	last := closes[len(closes)-1]
	for i, p := range res.Points {
		want := last + 0.5*float64(i+1)
		assert.InDelta(t, want, p.Value, 1.0, "step %d", i+1)
		assert.LessOrEqual(t, p.Lower, p.Value)
		assert.GreaterOrEqual(t, p.Upper, p.Value)
	}
	assert.Equal(t, models.ModelLinear, res.Meta.Model)
	assert.Equal(t, 3, res.Meta.Horizon)
	assert.Equal(t, len(closes), res.Meta.TrainingWindow)
}

func TestForecastLinearTrendAtMinimumLookback(t *testing.T) {
	// 30 closes 50..79, the smallest trainable series: the feature matrix is
	// maximally collinear here, which the solver must survive.
	closes := make([]float64, MinLookback)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	series := dailySeries(t, "WTI", closes)

	res, err := New().Forecast(context.Background(), series, 3, models.ModelLinear)
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	for i, p := range res.Points {
		assert.InDelta(t, 80+float64(i), p.Value, 1.5, "step %d", i+1)
	}
}

func TestForecastLinearTrendShortSeriesSweep(t *testing.T) {
	// Near-minimum lengths keep the design matrix rank-deficient; every size
	// must still track the ramp instead of blowing up.
	for _, n := range []int{MinLookback, 35, 40, 45, 60} {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 50 + float64(i)
		}
		series := dailySeries(t, "WTI", closes)

		res, err := New().Forecast(context.Background(), series, 5, models.ModelLinear)
		require.NoError(t, err, "n=%d", n)
		last := closes[n-1]
		for i, p := range res.Points {
			assert.InDelta(t, last+float64(i+1), p.Value, 2.0, "n=%d step %d", n, i+1)
		}
	}
}

func TestForecastHorizonLengthAndTimestamps(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 70 + 3*math.Sin(float64(i)/5) + 0.1*float64(i)
	}
	series := dailySeries(t, "NATGAS", closes)

	for _, kind := range []models.ModelKind{models.ModelLinear, models.ModelForest} {
		res, err := New().Forecast(context.Background(), series, 30, kind)
		require.NoError(t, err, "model %s", kind)
		require.Len(t, res.Points, 30)

		last, ok := series.Last()
		require.True(t, ok)
		lastTS := last.Timestamp
		for i, p := range res.Points {
			assert.Equal(t, lastTS.AddDate(0, 0, i+1), p.Timestamp)
			assert.False(t, math.IsNaN(p.Value))
		}
	}
}

func TestForecastForestDeterministicSeed(t *testing.T) {
	closes := make([]float64, 90)
	for i := range closes {
		closes[i] = 75 + 4*math.Sin(float64(i)/7) + 0.2*float64(i)
	}
	series := dailySeries(t, "WTI", closes)

	a, err := New().Forecast(context.Background(), series, 10, models.ModelForest)
	require.NoError(t, err)
	b, err := New().Forecast(context.Background(), series, 10, models.ModelForest)
	require.NoError(t, err)

	for i := range a.Points {
		assert.Equal(t, a.Points[i].Value, b.Points[i].Value, "step %d", i+1)
	}
}

func TestForecastCancelledContext(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 70 + 0.4*float64(i)
	}
	series := dailySeries(t, "WTI", closes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Forecast(ctx, series, 5, models.ModelLinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestForecastMetaErrorsFinite(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 65 + 0.3*float64(i) + 2*math.Sin(float64(i)/4)
	}
	series := dailySeries(t, "BRENT", closes)

	res, err := New().Forecast(context.Background(), series, 5, models.ModelForest)
	require.NoError(t, err)
	for _, v := range []float64{res.Meta.TrainMAE, res.Meta.TestMAE, res.Meta.TrainRMSE, res.Meta.TestRMSE} {
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, 0.0)
	}
}
