package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	phttp "EnergyPulse/pkg/http"
)

const yahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// Yahoo fetches OHLC data from the Yahoo Finance chart endpoint. No API key
// is required; Yahoo throttles by IP instead.
type Yahoo struct {
	http     *phttp.Client
	baseURL  string
	interval drepo.Interval
	symbols  map[string]string
}

// YahooOption configures the Yahoo provider.
type YahooOption func(*Yahoo)

// WithYahooBaseURL overrides the endpoint, used by tests.
func WithYahooBaseURL(u string) YahooOption {
	return func(y *Yahoo) {
		if u != "" {
			y.baseURL = u
		}
	}
}

// WithYahooInterval sets the candle interval.
func WithYahooInterval(iv drepo.Interval) YahooOption {
	return func(y *Yahoo) { y.interval = iv }
}

// WithYahooSymbols adds instrument-to-ticker overrides.
func WithYahooSymbols(overrides map[string]string) YahooOption {
	return func(y *Yahoo) { y.symbols = overrides }
}

// NewYahoo creates the Yahoo provider.
func NewYahoo(client *phttp.Client, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		http:     client,
		baseURL:  yahooDefaultBaseURL,
		interval: drepo.DefaultInterval(),
		symbols:  map[string]string{},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Name implements MarketDataProvider.
func (y *Yahoo) Name() string { return "yahoo" }

type yahooQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []yahooQuote `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves candles for [start, end). A candle with a missing close is
// dropped rather than zero-filled.
func (y *Yahoo) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("range %s..%s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), models.ErrRangeInvalid)
	}

	symbol := resolveSymbol(instrument, y.symbols, yahooSymbols)

	var body yahooChart
	err := y.http.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, symbol),
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(end.Unix(), 10)},
			"interval": {string(y.interval)},
			"events":   {"history"},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}

	if body.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s (%s): %w",
			symbol, body.Chart.Error.Description, body.Chart.Error.Code, models.ErrDataUnavailable)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result: %w", symbol, models.ErrDataUnavailable)
	}

	result := body.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := deref(quote.Close, i)
		if c == nil {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      valueOr(deref(quote.Open, i), *c),
			High:      valueOr(deref(quote.High, i), *c),
			Low:       valueOr(deref(quote.Low, i), *c),
			Close:     *c,
			Volume:    valueOr(deref(quote.Volume, i), 0),
		})
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: no usable candles: %w", symbol, models.ErrDataUnavailable)
	}

	return models.NewPriceSeries(instrument, y.Name(), string(y.interval), candles)
}

func deref(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
