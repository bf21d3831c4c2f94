package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EnergyPulse/internal/alert"
	"EnergyPulse/internal/domain/models"
	"EnergyPulse/internal/forecast"
	"EnergyPulse/internal/indicator"
	"EnergyPulse/internal/summary"
	"EnergyPulse/internal/usecase"
	xlogger "EnergyPulse/pkg/logger"
)

type fakeProvider struct {
	n   int
	err error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	if f.err != nil {
		return nil, f.err
	}
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, f.n)
	for i := range candles {
		c := 70 + 0.5*float64(i)
		candles[i] = models.Candle{Timestamp: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return models.NewPriceSeries(instrument, f.Name(), "1d", candles)
}

func newTestServer(t *testing.T, p *fakeProvider) *echo.Echo {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	pipeline := usecase.NewMarketPipeline(p,
		indicator.New(), forecast.New(), alert.New(), summary.New(), log)

	e := echo.New()
	NewMarketHandler(log, pipeline).RegisterRoutes(e)
	return e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestPricesEndpoint(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/prices?instrument=WTI")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.Status)

	var series models.PriceSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.Equal(t, "WTI", series.Instrument)
	assert.Equal(t, 60, series.Len())
}

func TestPricesMissingInstrument(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/prices")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestPricesBadRange(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/prices?instrument=WTI&start=2026-05-01&end=2026-04-01")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_RANGE_INVALID")
}

func TestPricesUpstreamDown(t *testing.T) {
	e := newTestServer(t, &fakeProvider{err: fmt.Errorf("down: %w", models.ErrDataUnavailable)})

	rec := doGet(e, "/api/prices?instrument=WTI")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadGateway, env.Status)
	assert.Contains(t, string(env.Data), "ERR_DATA_UNAVAILABLE")
}

func TestIndicatorsEndpointDefaults(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/indicators?instrument=WTI")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var set models.IndicatorSet
	require.NoError(t, json.Unmarshal(env.Data, &set))
	assert.Contains(t, set.Series, "SMA_14")
	assert.Contains(t, set.Series, "EMA_14")
	assert.Contains(t, set.Series, "RSI_14")
}

func TestIndicatorsUnknownName(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/indicators?instrument=WTI&names=MACD")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestForecastEndpoint(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 120})

	rec := doGet(e, "/api/forecast?instrument=WTI&horizon=5&model=linear")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var res models.ForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Points, 5)
	assert.Equal(t, models.ModelLinear, res.Meta.Model)
}

func TestForecastInsufficientHistory(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 10})

	rec := doGet(e, "/api/forecast?instrument=WTI&horizon=5&model=linear")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, env.Status)
	assert.Contains(t, string(env.Data), "ERR_INSUFFICIENT_DATA")
}

func TestForecastRejectsBadModel(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 120})

	rec := doGet(e, "/api/forecast?instrument=WTI&model=arima")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestSummaryEndpoint(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/summary?instrument=BRENT")
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var s models.MarketSummary
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, "BRENT", s.Instrument)
	assert.Equal(t, models.TrendUp, s.Trend)
}

func TestCorrelationEndpoint(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 30})

	rec := doGet(e, "/api/correlation?instruments=WTI,BRENT")
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)

	var m models.CorrelationMatrix
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, []string{"WTI", "BRENT"}, m.Instruments)
	assert.Equal(t, 30, m.Points)
	assert.InDelta(t, 1.0, m.Matrix[0][1], 1e-9)
}

func TestCorrelationNeedsTwoInstruments(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 30})

	rec := doGet(e, "/api/correlation?instruments=WTI")
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_CONFIG_INVALID")
}

func TestAnomaliesEndpointEmpty(t *testing.T) {
	// A smooth ramp has no whole-series outliers at the default threshold.
	e := newTestServer(t, &fakeProvider{n: 30})

	rec := doGet(e, "/api/anomalies?instrument=WTI")
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "[]", string(env.Data))
}

func TestAlertsEndpointEmpty(t *testing.T) {
	e := newTestServer(t, &fakeProvider{n: 60})

	rec := doGet(e, "/api/alerts?hours=24")
	env := decodeEnvelope(t, rec)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, "[]", string(env.Data))
}
