package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/alert"
	"EnergyPulse/internal/domain/models"
	"EnergyPulse/internal/indicator"
	"EnergyPulse/internal/summary"
	"EnergyPulse/pkg/cache"
	"EnergyPulse/pkg/logger"
)

type stubProvider struct {
	calls  atomic.Int32
	closes []float64
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(s.closes))
	for i, c := range s.closes {
		candles[i] = models.Candle{Timestamp: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return models.NewPriceSeries(instrument, s.Name(), "1d", candles)
}

type stubForecaster struct{}

func (stubForecaster) Forecast(ctx context.Context, series *models.PriceSeries,
	horizon int, kind models.ModelKind) (*models.ForecastResult, error) {
	points := make([]models.ForecastPoint, horizon)
	last, _ := series.Last()
	for i := range points {
		points[i] = models.ForecastPoint{Timestamp: last.Timestamp.AddDate(0, 0, i+1), Value: last.Close}
	}
	return &models.ForecastResult{
		Instrument: series.Instrument,
		Points:     points,
		Meta:       models.ForecastMeta{Model: kind, Horizon: horizon},
	}, nil
}

type captureSink struct {
	count  atomic.Int32
	events []models.AlertEvent
}

func (c *captureSink) Notify(ctx context.Context, events []models.AlertEvent) error {
	c.events = append(c.events, events...)
	c.count.Add(int32(len(events)))
	return nil
}

func (c *captureSink) Close() error { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func newPipeline(t *testing.T, p *stubProvider, opts ...PipelineOption) *MarketPipeline {
	t.Helper()
	return NewMarketPipeline(p,
		indicator.New(),
		stubForecaster{},
		alert.New(),
		summary.New(),
		testLogger(t),
		opts...)
}

func TestGetPricesCachesSecondCall(t *testing.T) {
	p := &stubProvider{closes: ramp(40, 70, 0.5)}
	mem := cache.NewMemoryCache()
	pipe := newPipeline(t, p, WithCache(mem, time.Minute))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 60)

	first, err := pipe.GetPrices(context.Background(), "WTI", start, end)
	require.NoError(t, err)
	second, err := pipe.GetPrices(context.Background(), "WTI", start, end)
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Candles[0].Close, second.Candles[0].Close)
}

func TestGetPricesDefaultRangeSharesCacheKey(t *testing.T) {
	p := &stubProvider{closes: ramp(40, 70, 0.5)}
	mem := cache.NewMemoryCache()

	// Two defaulted requests a second apart must resolve to the same cached
	// series rather than minting a fresh key per wall-clock second.
	clock := time.Date(2026, 3, 10, 14, 30, 7, 0, time.UTC)
	pipe := newPipeline(t, p,
		WithCache(mem, time.Minute),
		WithClock(func() time.Time { return clock }))

	_, err := pipe.GetPrices(context.Background(), "WTI", time.Time{}, time.Time{})
	require.NoError(t, err)

	clock = clock.Add(time.Second)
	_, err = pipe.GetPrices(context.Background(), "WTI", time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGetPricesRangeValidation(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(10, 70, 1)})

	now := time.Now()
	_, err := pipe.GetPrices(context.Background(), "WTI", now, now.AddDate(0, 0, -5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRangeInvalid))

	_, err = pipe.GetPrices(context.Background(), "WTI", now.AddDate(0, 0, 5), now.AddDate(0, 0, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRangeInvalid))
}

func TestGetCorrelationAcrossInstruments(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(30, 70, 0.5)})

	m, err := pipe.GetCorrelation(context.Background(), []string{"WTI", "BRENT"}, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"WTI", "BRENT"}, m.Instruments)
	assert.Equal(t, 30, m.Points)
	assert.InDelta(t, 1.0, m.Matrix[0][1], 1e-9)

	_, err = pipe.GetCorrelation(context.Background(), []string{"WTI"}, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))
}

func TestGetAnomaliesDefaultsThreshold(t *testing.T) {
	closes := ramp(30, 70, 0)
	closes[15] = 140
	pipe := newPipeline(t, &stubProvider{closes: closes})

	got, err := pipe.GetAnomalies(context.Background(), "WTI", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 140.0, got[0].Close)
}

func TestGetPricesProviderError(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{err: fmt.Errorf("upstream: %w", models.ErrDataUnavailable)})

	_, err := pipe.GetPrices(context.Background(), "WTI", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestGetIndicatorsComputesRequested(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(50, 70, 0.5)})

	reqs, err := ParseIndicatorNames("SMA,RSI", 14)
	require.NoError(t, err)

	set, err := pipe.GetIndicators(context.Background(), "WTI", reqs, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Contains(t, set.Series, "SMA_14")
	assert.Contains(t, set.Series, "RSI_14")
	assert.Len(t, set.Timestamps, 50)
}

func TestGetForecastDelegates(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(50, 70, 0.5)})

	res, err := pipe.GetForecast(context.Background(), "WTI", 7, models.ModelLinear)
	require.NoError(t, err)
	assert.Len(t, res.Points, 7)
	assert.Equal(t, models.ModelLinear, res.Meta.Model)
}

func TestGetSummary(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(40, 70, 1)})

	s, err := pipe.GetSummary(context.Background(), "WTI")
	require.NoError(t, err)
	assert.Equal(t, "WTI", s.Instrument)
	assert.Equal(t, models.TrendUp, s.Trend)
}

func TestEvaluateAlertsNotifiesAndRemembers(t *testing.T) {
	sink := &captureSink{}
	rules := []models.AlertRule{{
		ID: "r1", Instrument: "WTI", Metric: "close",
		Comparator: models.CompAbove, Threshold: 80,
		Cooldown: time.Hour, Severity: models.SeverityHigh,
	}}
	pipe := newPipeline(t, &stubProvider{closes: ramp(40, 70, 1)},
		WithAlertRules(rules), WithAlertSinks(sink))

	events, err := pipe.EvaluateAlerts(context.Background(), "WTI")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(1), sink.count.Load())

	recent, err := pipe.RecentAlerts(context.Background(), "WTI", 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	// Cooldown: second evaluation stays quiet.
	events, err = pipe.EvaluateAlerts(context.Background(), "WTI")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvaluateAlertsIndicatorMetric(t *testing.T) {
	// Monotonic ramp pins RSI to 100.
	rules := []models.AlertRule{{
		ID: "rsi-hot", Instrument: "WTI", Metric: "RSI_14",
		Comparator: models.CompAbove, Threshold: 70,
		Cooldown: time.Hour, Severity: models.SeverityMedium,
	}}
	pipe := newPipeline(t, &stubProvider{closes: ramp(40, 70, 1)}, WithAlertRules(rules))

	events, err := pipe.EvaluateAlerts(context.Background(), "WTI")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "RSI_14", events[0].Metric)
}

type captureBroadcaster struct {
	frames []string
}

func (c *captureBroadcaster) Broadcast(frameType string, _ interface{}) {
	c.frames = append(c.frames, frameType)
}

func TestEvaluateAlertsBroadcastsQuote(t *testing.T) {
	b := &captureBroadcaster{}
	pipe := newPipeline(t, &stubProvider{closes: ramp(40, 70, 1)}, WithBroadcaster(b))

	_, err := pipe.EvaluateAlerts(context.Background(), "WTI")
	require.NoError(t, err)
	require.Equal(t, []string{"quote"}, b.frames)
}

func TestRefreshAllFansOut(t *testing.T) {
	pipe := newPipeline(t, &stubProvider{closes: ramp(40, 70, 1)})

	results := pipe.RefreshAll(context.Background(), []string{"WTI", "BRENT", "NATGAS"})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestParseIndicatorNames(t *testing.T) {
	reqs, err := ParseIndicatorNames("SMA_20, rsi, BB_UPPER", 14)
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, models.IndicatorSMA, reqs[0].Kind)
	assert.Equal(t, 20, reqs[0].Window)
	assert.Equal(t, models.IndicatorRSI, reqs[1].Kind)
	assert.Equal(t, 14, reqs[1].Window)
	assert.Equal(t, models.IndicatorBollingerUpper, reqs[2].Kind)

	_, err = ParseIndicatorNames("MACD", 14)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))
}

func TestParseTimeArg(t *testing.T) {
	ts, err := ParseTimeArg("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, err = ParseTimeArg("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseTimeArg("yesterday")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRangeInvalid))
}
