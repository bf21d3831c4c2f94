package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	"EnergyPulse/internal/domain/service"
	"EnergyPulse/pkg/cache"
	"EnergyPulse/pkg/logger"
)

const (
	seriesKeyPrefix = "series"

	// recentAlertsMax bounds the in-process alert buffer used when no
	// history store is configured.
	recentAlertsMax = 1000
)

// PipelineOption configures the MarketPipeline.
type PipelineOption func(*MarketPipeline)

// WithCache enables series caching with a TTL.
func WithCache(c cache.Service, ttl time.Duration) PipelineOption {
	return func(p *MarketPipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithAlertRules sets the configured rule set.
func WithAlertRules(rules []models.AlertRule) PipelineOption {
	return func(p *MarketPipeline) { p.rules = rules }
}

// WithAlertSinks registers notification sinks for fired alerts.
func WithAlertSinks(sinks ...drepo.AlertSink) PipelineOption {
	return func(p *MarketPipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithAlertStore enables persistent alert history, written synchronously by
// EvaluateAlerts and read back by RecentAlerts.
func WithAlertStore(store drepo.AlertStore) PipelineOption {
	return func(p *MarketPipeline) {
		p.store = store
		p.history = store
	}
}

// WithAlertHistoryReader enables history queries against a store that is fed
// out-of-band, e.g. by a Kafka consumer.
func WithAlertHistoryReader(store drepo.AlertStore) PipelineOption {
	return func(p *MarketPipeline) { p.history = store }
}

// Broadcaster pushes typed frames to connected dashboard clients.
type Broadcaster interface {
	Broadcast(frameType string, payload interface{})
}

// WithBroadcaster enables quote pushes on every refresh.
func WithBroadcaster(b Broadcaster) PipelineOption {
	return func(p *MarketPipeline) { p.broadcaster = b }
}

// WithMetrics registers a metrics recorder.
func WithMetrics(m drepo.Metrics) PipelineOption {
	return func(p *MarketPipeline) { p.metrics = m }
}

// WithLookback sets the default fetch window when a request has no range.
func WithLookback(d time.Duration) PipelineOption {
	return func(p *MarketPipeline) {
		if d > 0 {
			p.lookback = d
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *MarketPipeline) { p.now = now }
}

// MarketPipeline is the orchestration layer: it resolves a price series
// (cache first, provider second) and runs the analytics engines over it.
type MarketPipeline struct {
	provider   drepo.MarketDataProvider
	indicators service.IndicatorEngine
	forecaster service.ForecastEngine
	alerts     service.AlertEvaluator
	summarizer service.SummaryAnalyzer
	logger     *logger.Logger

	cache    cache.Service
	cacheTTL time.Duration
	rules    []models.AlertRule
	sinks    []drepo.AlertSink
	store    drepo.AlertStore
	history  drepo.AlertStore
	metrics  drepo.Metrics
	lookback time.Duration
	now      func() time.Time

	broadcaster Broadcaster

	mu     sync.Mutex
	recent []models.AlertEvent
}

// NewMarketPipeline wires the analytics engines around one data provider.
func NewMarketPipeline(
	provider drepo.MarketDataProvider,
	indicators service.IndicatorEngine,
	forecaster service.ForecastEngine,
	alerts service.AlertEvaluator,
	summarizer service.SummaryAnalyzer,
	log *logger.Logger,
	opts ...PipelineOption,
) *MarketPipeline {
	p := &MarketPipeline{
		provider:   provider,
		indicators: indicators,
		forecaster: forecaster,
		alerts:     alerts,
		summarizer: summarizer,
		logger:     log,
		lookback:   365 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetPrices resolves a series for [start, end). Zero start/end default to
// the configured lookback window ending now.
func (p *MarketPipeline) GetPrices(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	start, end, err := p.normalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	return p.fetchSeries(ctx, instrument, start, end)
}

// GetIndicators computes the requested indicator series over the window.
func (p *MarketPipeline) GetIndicators(ctx context.Context, instrument string,
	requests []models.IndicatorRequest, start, end time.Time) (*models.IndicatorSet, error) {

	if len(requests) == 0 {
		return nil, fmt.Errorf("no indicators requested: %w", models.ErrConfigInvalid)
	}
	series, err := p.GetPrices(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}
	return p.indicators.Compute(series, requests), nil
}

// GetForecast trains a model over the default lookback and projects horizon
// steps.
func (p *MarketPipeline) GetForecast(ctx context.Context, instrument string,
	horizon int, kind models.ModelKind) (*models.ForecastResult, error) {

	series, err := p.GetPrices(ctx, instrument, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := p.forecaster.Forecast(ctx, series, horizon, kind)
	if p.metrics != nil {
		p.metrics.RecordLatency("forecast", time.Since(started).Seconds())
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSummary condenses the default lookback window into the header view.
func (p *MarketPipeline) GetSummary(ctx context.Context, instrument string) (*models.MarketSummary, error) {
	series, err := p.GetPrices(ctx, instrument, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return p.summarizer.Summarize(series)
}

// defaultAnomalyThreshold is the z-score above which a close is flagged.
const defaultAnomalyThreshold = 2.0

// GetCorrelation resolves each instrument over the shared range and computes
// the pairwise correlation matrix of close prices.
func (p *MarketPipeline) GetCorrelation(ctx context.Context, instruments []string, start, end time.Time) (*models.CorrelationMatrix, error) {
	if len(instruments) < 2 {
		return nil, fmt.Errorf("correlation needs at least 2 instruments, got %d: %w",
			len(instruments), models.ErrConfigInvalid)
	}
	all := make([]*models.PriceSeries, 0, len(instruments))
	for _, instrument := range instruments {
		series, err := p.GetPrices(ctx, instrument, start, end)
		if err != nil {
			return nil, err
		}
		all = append(all, series)
	}
	return p.summarizer.Correlate(all)
}

// GetAnomalies flags closes far from the series mean. A non-positive
// threshold selects the default.
func (p *MarketPipeline) GetAnomalies(ctx context.Context, instrument string, start, end time.Time, threshold float64) ([]models.Anomaly, error) {
	if threshold <= 0 {
		threshold = defaultAnomalyThreshold
	}
	series, err := p.GetPrices(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}
	return p.summarizer.Anomalies(series, threshold)
}

// EvaluateAlerts runs the configured rules for one instrument, fanning fired
// events out to the sinks and the history store. The returned slice holds
// only events fired by this call.
func (p *MarketPipeline) EvaluateAlerts(ctx context.Context, instrument string) ([]models.AlertEvent, error) {
	if p.cache != nil {
		// Drop superseded snapshots; the range below ends now, so the key
		// changes every cycle.
		pattern := cache.BuildPattern(cache.GenerateKeyWithParams(seriesKeyPrefix, instrument))
		if err := p.cache.DeleteByPattern(ctx, pattern); err != nil {
			p.logger.Debug("cache invalidation failed", logger.Error(err))
		}
	}

	series, err := p.GetPrices(ctx, instrument, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	if p.broadcaster != nil {
		if last, ok := series.Last(); ok {
			p.broadcaster.Broadcast("quote", QuoteFrame{Instrument: instrument, Candle: last})
		}
	}

	indicators := p.indicators.Compute(series, p.indicatorRequestsFor(instrument))
	events := p.alerts.Evaluate(series, indicators, p.rules)
	if len(events) == 0 {
		return nil, nil
	}

	p.remember(events)
	for _, e := range events {
		if p.metrics != nil {
			p.metrics.RecordAlert(e.Instrument, string(e.Severity))
		}
	}
	for _, sink := range p.sinks {
		if err := sink.Notify(ctx, events); err != nil {
			p.logger.Error("alert sink notify failed", logger.Error(err))
		}
	}
	if p.store != nil {
		batch := make([]*models.AlertEvent, len(events))
		for i := range events {
			batch[i] = &events[i]
		}
		if err := p.store.StoreBatch(ctx, batch); err != nil {
			p.logger.Error("alert history store failed", logger.Error(err))
		}
	}
	return events, nil
}

// RecentAlerts returns alert history for the trailing window. It reads the
// persistent store when one is configured and the in-process buffer
// otherwise.
func (p *MarketPipeline) RecentAlerts(ctx context.Context, instrument string, window time.Duration) ([]models.AlertEvent, error) {
	if window <= 0 {
		return nil, fmt.Errorf("alert window %s: %w", window, models.ErrRangeInvalid)
	}
	since := time.Now().Add(-window)

	if p.history != nil {
		rows, err := p.history.Query(ctx, instrument, since, time.Now(), recentAlertsMax)
		if err != nil {
			return nil, fmt.Errorf("alert history query: %w", err)
		}
		out := make([]models.AlertEvent, 0, len(rows))
		for _, r := range rows {
			out = append(out, *r)
		}
		return out, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.AlertEvent
	for _, e := range p.recent {
		if e.TriggeredAt.Before(since) {
			continue
		}
		if instrument != "" && e.Instrument != instrument {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// QuoteFrame is the payload pushed to dashboard clients on refresh.
type QuoteFrame struct {
	Instrument string        `json:"instrument"`
	Candle     models.Candle `json:"candle"`
}

// RefreshResult is the outcome of one instrument refresh.
type RefreshResult struct {
	Instrument string
	Alerts     int
	Err        error
}

// RefreshAll fetches every instrument concurrently, re-evaluating alerts on
// each fresh series. Cache entries for refreshed series are replaced.
func (p *MarketPipeline) RefreshAll(ctx context.Context, instruments []string) []RefreshResult {
	results := make([]RefreshResult, len(instruments))
	var wg sync.WaitGroup
	for i, instrument := range instruments {
		wg.Add(1)
		go func(i int, instrument string) {
			defer wg.Done()
			events, err := p.EvaluateAlerts(ctx, instrument)
			results[i] = RefreshResult{Instrument: instrument, Alerts: len(events), Err: err}
		}(i, instrument)
	}
	wg.Wait()
	return results
}

func (p *MarketPipeline) normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	now := p.now()
	if end.IsZero() {
		// Truncated so back-to-back defaulted requests share a cache key.
		end = now.Truncate(time.Hour)
		if !start.IsZero() && !end.After(start) {
			end = now
		}
	}
	if start.IsZero() {
		start = end.Add(-p.lookback)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s not before end %s: %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), models.ErrRangeInvalid)
	}
	if start.After(now) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is in the future: %w",
			start.Format(time.RFC3339), models.ErrRangeInvalid)
	}
	return start, end, nil
}

func (p *MarketPipeline) fetchSeries(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	key := cache.GenerateKeyWithParams(seriesKeyPrefix, instrument, start.Unix(), end.Unix())

	if p.cache != nil {
		var raw string
		if err := p.cache.Get(ctx, key, &raw); err == nil {
			var series models.PriceSeries
			if err := json.Unmarshal([]byte(raw), &series); err == nil {
				return &series, nil
			}
		}
	}

	started := time.Now()
	series, err := p.provider.Fetch(ctx, instrument, start, end)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("fetch")
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordFetch(p.provider.Name(), instrument, time.Since(started).Seconds())
		if last, ok := series.Last(); ok {
			p.metrics.RecordLastPrice(instrument, last.Close)
		}
	}

	if p.cache != nil {
		if raw, err := json.Marshal(series); err == nil {
			if err := p.cache.Set(ctx, key, string(raw), p.cacheTTL); err != nil {
				p.logger.Warn("series cache set failed", logger.Error(err))
			}
		}
	}
	return series, nil
}

// indicatorRequestsFor derives the indicator series the instrument's rules
// reference, so alert evaluation computes only what it needs.
func (p *MarketPipeline) indicatorRequestsFor(instrument string) []models.IndicatorRequest {
	seen := map[string]bool{}
	var reqs []models.IndicatorRequest
	for _, r := range p.rules {
		if r.Instrument != "" && r.Instrument != instrument {
			continue
		}
		kind, window, ok := parseMetricName(r.Metric)
		if !ok || seen[r.Metric] {
			continue
		}
		seen[r.Metric] = true
		reqs = append(reqs, models.IndicatorRequest{Kind: kind, Window: window})
	}
	return reqs
}

func (p *MarketPipeline) remember(events []models.AlertEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recent = append(p.recent, events...)
	if n := len(p.recent); n > recentAlertsMax {
		p.recent = p.recent[n-recentAlertsMax:]
	}
}
