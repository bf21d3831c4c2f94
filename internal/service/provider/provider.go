package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	"EnergyPulse/internal/service/ratelimit"
	"EnergyPulse/pkg/config"
	phttp "EnergyPulse/pkg/http"
	"EnergyPulse/pkg/logger"
)

// defaultRetryBackoff is used when the config leaves the backoff unset.
const defaultRetryBackoff = 500 * time.Millisecond

// FromConfig builds the configured provider wrapped with rate limiting and a
// single bounded retry.
func FromConfig(cfg *config.Config, log *logger.Logger) (drepo.MarketDataProvider, error) {
	client := phttp.NewClient(phttp.WithTimeout(cfg.Provider.Timeout))

	var inner drepo.MarketDataProvider
	switch cfg.Provider.Name {
	case "yahoo", "":
		inner = NewYahoo(client,
			WithYahooBaseURL(cfg.Provider.BaseURL),
			WithYahooInterval(drepo.NormalizeInterval(cfg.Provider.Interval)),
			WithYahooSymbols(cfg.Symbols),
		)
	case "alphavantage":
		inner = NewAlphaVantage(client, cfg.Provider.APIKey,
			WithAlphaVantageBaseURL(cfg.Provider.BaseURL),
			WithAlphaVantageSymbols(cfg.Symbols),
		)
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", cfg.Provider.Name, models.ErrConfigInvalid)
	}

	if cfg.Provider.RateLimitRPS > 0 {
		inner = NewRateLimited(inner, ratelimit.New(), cfg.Provider.RateLimitRPS)
	}

	backoff := cfg.Provider.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return NewRetrying(inner, backoff, log), nil
}

// Retrying wraps a provider with exactly one retry after a fixed backoff.
// Invalid-input failures are terminal and never retried.
type Retrying struct {
	inner   drepo.MarketDataProvider
	backoff time.Duration
	log     *logger.Logger
}

// NewRetrying creates the retry wrapper.
func NewRetrying(inner drepo.MarketDataProvider, backoff time.Duration, log *logger.Logger) *Retrying {
	return &Retrying{inner: inner, backoff: backoff, log: log}
}

// Name implements MarketDataProvider.
func (r *Retrying) Name() string { return r.inner.Name() }

// Fetch implements MarketDataProvider.
func (r *Retrying) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	series, err := r.inner.Fetch(ctx, instrument, start, end)
	if err == nil || !retryable(err) {
		return series, err
	}

	if r.log != nil {
		r.log.Warn("provider fetch failed, retrying once",
			logger.String("provider", r.inner.Name()),
			logger.String("instrument", instrument),
			logger.Error(err))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(r.backoff):
	}
	return r.inner.Fetch(ctx, instrument, start, end)
}

func retryable(err error) bool {
	if errors.Is(err, models.ErrRangeInvalid) || errors.Is(err, models.ErrConfigInvalid) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// RateLimited gates Fetch behind a token bucket keyed by provider name.
type RateLimited struct {
	inner   drepo.MarketDataProvider
	limiter *ratelimit.Limiter
	rps     float64
}

// NewRateLimited creates the rate-limit wrapper.
func NewRateLimited(inner drepo.MarketDataProvider, limiter *ratelimit.Limiter, rps float64) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter, rps: rps}
}

// Name implements MarketDataProvider.
func (r *RateLimited) Name() string { return r.inner.Name() }

// Fetch implements MarketDataProvider. A request over budget fails fast so
// the caller can fall back to cached data instead of queueing.
func (r *RateLimited) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	if !r.limiter.Allow(r.inner.Name(), r.rps, r.rps) {
		return nil, fmt.Errorf("provider %s rate limited: %w", r.inner.Name(), models.ErrDataUnavailable)
	}
	return r.inner.Fetch(ctx, instrument, start, end)
}
