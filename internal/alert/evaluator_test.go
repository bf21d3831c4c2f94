package alert

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
)

func seriesWithCloses(t *testing.T, instrument string, closes ...float64) *models.PriceSeries {
	t.Helper()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    100,
		}
	}
	series, err := models.NewPriceSeries(instrument, "test", "1d", candles)
	require.NoError(t, err)
	return series
}

func TestEvaluateCloseThreshold(t *testing.T) {
	tests := []struct {
		name      string
		closes    []float64
		cmp       models.Comparator
		threshold float64
		fires     bool
	}{
		{"above fires", []float64{78, 79, 81.5}, models.CompAbove, 80, true},
		{"above quiet", []float64{78, 79, 79.9}, models.CompAbove, 80, false},
		{"below fires", []float64{3.1, 2.9, 2.4}, models.CompBelow, 2.5, true},
		{"above-eq boundary", []float64{79, 80}, models.CompAboveEq, 80, true},
		{"below-eq boundary", []float64{81, 80}, models.CompBelowEq, 80, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := seriesWithCloses(t, "WTI", tt.closes...)
			rule := models.AlertRule{
				Instrument: "WTI",
				Metric:     "close",
				Comparator: tt.cmp,
				Threshold:  tt.threshold,
				Severity:   models.SeverityHigh,
			}

			events := New().Evaluate(series, nil, []models.AlertRule{rule})
			if !tt.fires {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, "WTI", events[0].Instrument)
			assert.Equal(t, tt.closes[len(tt.closes)-1], events[0].Observed)
			assert.Equal(t, models.SeverityHigh, events[0].Severity)
			assert.NotEmpty(t, events[0].Message)
		})
	}
}

func TestEvaluateCooldownSuppressesRefire(t *testing.T) {
	series := seriesWithCloses(t, "WTI", 79, 82)
	rule := models.AlertRule{
		ID:         "wti-high",
		Instrument: "WTI",
		Metric:     "close",
		Comparator: models.CompAbove,
		Threshold:  80,
		Cooldown:   time.Hour,
		Severity:   models.SeverityMedium,
	}

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ev := New(WithClock(func() time.Time { return now }))

	require.Len(t, ev.Evaluate(series, nil, []models.AlertRule{rule}), 1)

	// Still inside the window: condition holds but nothing fires.
	now = now.Add(30 * time.Minute)
	assert.Empty(t, ev.Evaluate(series, nil, []models.AlertRule{rule}))

	now = now.Add(31 * time.Minute)
	events := ev.Evaluate(series, nil, []models.AlertRule{rule})
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].TriggeredAt)
}

func TestEvaluateCooldownIsPerRule(t *testing.T) {
	series := seriesWithCloses(t, "WTI", 79, 85)
	high := models.AlertRule{
		ID: "r1", Instrument: "WTI", Metric: "close",
		Comparator: models.CompAbove, Threshold: 80,
		Cooldown: time.Hour, Severity: models.SeverityLow,
	}
	higher := models.AlertRule{
		ID: "r2", Instrument: "WTI", Metric: "close",
		Comparator: models.CompAbove, Threshold: 84,
		Cooldown: time.Hour, Severity: models.SeverityHigh,
	}

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ev := New(WithClock(func() time.Time { return now }))

	require.Len(t, ev.Evaluate(series, nil, []models.AlertRule{high}), 1)

	// r1 cooling down must not block r2.
	events := ev.Evaluate(series, nil, []models.AlertRule{high, higher})
	require.Len(t, events, 1)
	assert.Equal(t, "r2", events[0].RuleID)
}

func TestEvaluateIndicatorMetric(t *testing.T) {
	series := seriesWithCloses(t, "BRENT", 70, 71, 72)
	indicators := &models.IndicatorSet{
		Instrument: "BRENT",
		Series: map[string][]float64{
			"RSI_14": {math.NaN(), 65, 72.5},
		},
	}
	rule := models.AlertRule{
		Instrument: "BRENT",
		Metric:     "RSI_14",
		Comparator: models.CompAbove,
		Threshold:  70,
		Severity:   models.SeverityMedium,
	}

	events := New().Evaluate(series, indicators, []models.AlertRule{rule})
	require.Len(t, events, 1)
	assert.Equal(t, 72.5, events[0].Observed)
}

func TestEvaluateSkipsUndefinedMetric(t *testing.T) {
	series := seriesWithCloses(t, "BRENT", 70, 71)
	indicators := &models.IndicatorSet{
		Instrument: "BRENT",
		Series: map[string][]float64{
			"RSI_14": {math.NaN(), math.NaN()},
		},
	}
	rules := []models.AlertRule{
		{Instrument: "BRENT", Metric: "RSI_14", Comparator: models.CompAbove, Threshold: 1},
		{Instrument: "BRENT", Metric: "SMA_200", Comparator: models.CompAbove, Threshold: 1},
	}

	assert.Empty(t, New().Evaluate(series, indicators, rules))
}

func TestEvaluateFiltersByInstrument(t *testing.T) {
	series := seriesWithCloses(t, "NATGAS", 2, 3, 9)
	rules := []models.AlertRule{
		{Instrument: "WTI", Metric: "close", Comparator: models.CompAbove, Threshold: 1},
		{Instrument: "NATGAS", Metric: "close", Comparator: models.CompAbove, Threshold: 5},
		// Empty instrument applies everywhere.
		{Metric: "close", Comparator: models.CompAbove, Threshold: 8},
	}

	events := New().Evaluate(series, nil, rules)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, "NATGAS", ev.Instrument)
	}
}

func TestResetClearsCooldown(t *testing.T) {
	series := seriesWithCloses(t, "WTI", 79, 82)
	rule := models.AlertRule{
		ID: "r1", Instrument: "WTI", Metric: "close",
		Comparator: models.CompAbove, Threshold: 80, Cooldown: time.Hour,
	}

	ev := New()
	require.Len(t, ev.Evaluate(series, nil, []models.AlertRule{rule}), 1)
	assert.Empty(t, ev.Evaluate(series, nil, []models.AlertRule{rule}))

	ev.Reset("r1")
	assert.Len(t, ev.Evaluate(series, nil, []models.AlertRule{rule}), 1)
}
