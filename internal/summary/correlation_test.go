package summary

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
)

func namedSeries(t *testing.T, instrument string, startDay int, closes []float64) *models.PriceSeries {
	t.Helper()
	start := time.Date(2026, 2, 2+startDay, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 500}
	}
	series, err := models.NewPriceSeries(instrument, "test", "1d", candles)
	require.NoError(t, err)
	return series
}

func TestCorrelatePerfectPositiveAndNegative(t *testing.T) {
	up := []float64{60, 61, 62, 63, 64}
	down := []float64{90, 89, 88, 87, 86}

	m, err := New().Correlate([]*models.PriceSeries{
		namedSeries(t, "WTI", 0, up),
		namedSeries(t, "BRENT", 0, up),
		namedSeries(t, "NG", 0, down),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"WTI", "BRENT", "NG"}, m.Instruments)
	assert.Equal(t, 5, m.Points)
	assert.InDelta(t, 1.0, m.Matrix[0][1], 1e-9)
	assert.InDelta(t, -1.0, m.Matrix[0][2], 1e-9)
	assert.Equal(t, m.Matrix[0][2], m.Matrix[2][0])
	assert.Equal(t, 1.0, m.Matrix[1][1])
}

func TestCorrelateAlignsOnCommonTimestamps(t *testing.T) {
	// Second series starts two days later; only the overlap counts.
	m, err := New().Correlate([]*models.PriceSeries{
		namedSeries(t, "WTI", 0, []float64{60, 61, 62, 63, 64, 65}),
		namedSeries(t, "NG", 2, []float64{3.0, 3.1, 3.2, 3.3}),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, m.Points)
	assert.InDelta(t, 1.0, m.Matrix[0][1], 1e-9)
}

func TestCorrelateErrors(t *testing.T) {
	one := namedSeries(t, "WTI", 0, []float64{60, 61, 62})

	_, err := New().Correlate([]*models.PriceSeries{one})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))

	// Disjoint date ranges leave no aligned points.
	far := namedSeries(t, "NG", 30, []float64{3.0, 3.1, 3.2})
	_, err = New().Correlate([]*models.PriceSeries{one, far})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestCorrelateFlatSeriesIsZero(t *testing.T) {
	m, err := New().Correlate([]*models.PriceSeries{
		namedSeries(t, "WTI", 0, []float64{60, 61, 62, 63}),
		namedSeries(t, "NG", 0, []float64{3, 3, 3, 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Matrix[0][1])
}

func TestAnomaliesFlagsOutliers(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 70
	}
	closes[10] = 71
	closes[20] = 110 // far outside the cluster

	got, err := New().Anomalies(namedSeries(t, "WTI", 0, closes), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 110.0, got[0].Close)
	assert.Greater(t, got[0].Score, 2.0)
}

func TestAnomaliesFlatAndShortSeries(t *testing.T) {
	got, err := New().Anomalies(namedSeries(t, "WTI", 0, []float64{70, 70, 70, 70}), 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = New().Anomalies(namedSeries(t, "WTI", 0, []float64{70}), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}
