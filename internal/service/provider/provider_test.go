package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/internal/service/ratelimit"
	phttp "EnergyPulse/pkg/http"
)

func testClient() *phttp.Client {
	return phttp.NewClient(phttp.WithTimeout(5 * time.Second))
}

func TestYahooFetchParsesChart(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1767312000,1767398400,1767484800],
			"indicators":{"quote":[{"open":[71.0,72.0,null],"high":[72.5,73.0,74.0],
			"low":[70.5,71.0,72.0],"close":[72.0,72.8,73.5],"volume":[1000,1100,900]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	y := NewYahoo(testClient(), WithYahooBaseURL(srv.URL))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := y.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/CL=F", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.Equal(t, "WTI", series.Instrument)
	assert.Equal(t, "yahoo", series.Provider)
	require.Equal(t, 3, series.Len())
	assert.Equal(t, 72.0, series.Candles[0].Close)
	// Missing open falls back to the close.
	assert.Equal(t, 73.5, series.Candles[2].Open)
}

func TestYahooFetchDropsNullCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1767312000,1767398400],
			"indicators":{"quote":[{"open":[71.0,72.0],"high":[72.5,73.0],
			"low":[70.5,71.0],"close":[72.0,null],"volume":[1000,1100]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	y := NewYahoo(testClient(), WithYahooBaseURL(srv.URL))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := y.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

func TestYahooFetchChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	y := NewYahoo(testClient(), WithYahooBaseURL(srv.URL))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := y.Fetch(context.Background(), "NOPE", start, start.AddDate(0, 0, 7))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestYahooFetchInvalidRange(t *testing.T) {
	y := NewYahoo(testClient())
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := y.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, -3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRangeInvalid))
}

func TestAlphaVantageFetchFiltersRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "XOM", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"Time Series (Daily)":{
			"2026-01-05":{"1. open":"110.0","2. high":"111.0","3. low":"109.0","4. close":"110.5","5. volume":"5000"},
			"2026-01-06":{"1. open":"110.5","2. high":"112.0","3. low":"110.0","4. close":"111.2","5. volume":"5200"},
			"2025-12-01":{"1. open":"100.0","2. high":"101.0","3. low":"99.0","4. close":"100.2","5. volume":"4000"}}}`)
	}))
	defer srv.Close()

	a := NewAlphaVantage(testClient(), "demo", WithAlphaVantageBaseURL(srv.URL))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := a.Fetch(context.Background(), "XOM", start, start.AddDate(0, 0, 30))
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	assert.Equal(t, 110.5, series.Candles[0].Close)
	assert.True(t, series.Candles[0].Timestamp.Before(series.Candles[1].Timestamp))
}

func TestAlphaVantageThrottledNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)
	}))
	defer srv.Close()

	a := NewAlphaVantage(testClient(), "demo", WithAlphaVantageBaseURL(srv.URL))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := a.Fetch(context.Background(), "XOM", start, start.AddDate(0, 0, 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestAlphaVantageMissingKey(t *testing.T) {
	a := NewAlphaVantage(testClient(), "")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := a.Fetch(context.Background(), "XOM", start, start.AddDate(0, 0, 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfigInvalid))
}

type flakyProvider struct {
	calls atomic.Int32
	fail  int32
	err   error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	n := f.calls.Add(1)
	if n <= f.fail {
		return nil, f.err
	}
	return models.NewPriceSeries(instrument, f.Name(), "1d", []models.Candle{
		{Timestamp: start, Close: 80},
	})
}

func TestRetryingRecoversOnce(t *testing.T) {
	inner := &flakyProvider{fail: 1, err: fmt.Errorf("boom: %w", models.ErrDataUnavailable)}
	p := NewRetrying(inner, time.Millisecond, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series, err := p.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRetryingStopsAfterSecondFailure(t *testing.T) {
	inner := &flakyProvider{fail: 5, err: fmt.Errorf("boom: %w", models.ErrDataUnavailable)}
	p := NewRetrying(inner, time.Millisecond, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := p.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRetryingSkipsTerminalErrors(t *testing.T) {
	inner := &flakyProvider{fail: 5, err: fmt.Errorf("bad range: %w", models.ErrRangeInvalid)}
	p := NewRetrying(inner, time.Millisecond, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := p.Fetch(context.Background(), "WTI", start, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRangeInvalid))
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRateLimitedFailsFastOverBudget(t *testing.T) {
	inner := &flakyProvider{}
	p := NewRateLimited(inner, ratelimit.New(), 2)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	_, err := p.Fetch(context.Background(), "WTI", start, end)
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), "WTI", start, end)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), "WTI", start, end)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.Equal(t, int32(2), inner.calls.Load())
}
