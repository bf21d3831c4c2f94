package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	phttp "EnergyPulse/pkg/http"
)

const (
	alphaVantageDefaultBaseURL = "https://www.alphavantage.co"
	alphaVantageDateLayout     = "2006-01-02"
)

// AlphaVantage fetches daily OHLC data from the Alpha Vantage REST API.
// The free tier allows 5 requests per minute, so this provider is normally
// wrapped by RateLimited.
type AlphaVantage struct {
	http    *phttp.Client
	baseURL string
	apiKey  string
	symbols map[string]string
}

// AlphaVantageOption configures the provider.
type AlphaVantageOption func(*AlphaVantage)

// WithAlphaVantageBaseURL overrides the endpoint, used by tests.
func WithAlphaVantageBaseURL(u string) AlphaVantageOption {
	return func(a *AlphaVantage) {
		if u != "" {
			a.baseURL = u
		}
	}
}

// WithAlphaVantageSymbols adds instrument-to-symbol overrides.
func WithAlphaVantageSymbols(overrides map[string]string) AlphaVantageOption {
	return func(a *AlphaVantage) { a.symbols = overrides }
}

// NewAlphaVantage creates the Alpha Vantage provider.
func NewAlphaVantage(client *phttp.Client, apiKey string, opts ...AlphaVantageOption) *AlphaVantage {
	a := &AlphaVantage{
		http:    client,
		baseURL: alphaVantageDefaultBaseURL,
		apiKey:  apiKey,
		symbols: map[string]string{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements MarketDataProvider.
func (a *AlphaVantage) Name() string { return "alphavantage" }

type avDaily struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avResponse struct {
	ErrorMessage string             `json:"Error Message"`
	Note         string             `json:"Note"`
	Information  string             `json:"Information"`
	Series       map[string]avDaily `json:"Time Series (Daily)"`
}

// Fetch retrieves daily candles for [start, end). Alpha Vantage always
// returns the full recent history; rows outside the range are filtered here.
func (a *AlphaVantage) Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("range %s..%s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), models.ErrRangeInvalid)
	}
	if a.apiKey == "" {
		return nil, fmt.Errorf("alphavantage: missing api key: %w", models.ErrConfigInvalid)
	}

	symbol := resolveSymbol(instrument, a.symbols, alphaVantageSymbols)

	var raw []byte
	err := a.http.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    a.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":   {"TIME_SERIES_DAILY"},
			"symbol":     {symbol},
			"outputsize": {"full"},
			"apikey":     {a.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}

	var body avResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("alphavantage %s: decode: %v: %w", symbol, err, models.ErrDataUnavailable)
	}
	// The API reports rate limiting and bad symbols as 200 with a text field.
	if body.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage %s: %s: %w", symbol, body.ErrorMessage, models.ErrDataUnavailable)
	}
	if body.Note != "" || body.Information != "" {
		return nil, fmt.Errorf("alphavantage %s: throttled: %w", symbol, models.ErrDataUnavailable)
	}
	if len(body.Series) == 0 {
		return nil, fmt.Errorf("alphavantage %s: empty series: %w", symbol, models.ErrDataUnavailable)
	}

	dates := make([]string, 0, len(body.Series))
	for d := range body.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	candles := make([]models.Candle, 0, len(dates))
	for _, d := range dates {
		ts, err := time.ParseInLocation(alphaVantageDateLayout, d, time.UTC)
		if err != nil {
			continue
		}
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		row := body.Series[d]
		c, err := parseAVCandle(ts, row)
		if err != nil {
			continue
		}
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("alphavantage %s: no candles in range: %w", symbol, models.ErrDataUnavailable)
	}

	return models.NewPriceSeries(instrument, a.Name(), string(drepo.Interval1d), candles)
}

func parseAVCandle(ts time.Time, row avDaily) (models.Candle, error) {
	o, err := strconv.ParseFloat(row.Open, 64)
	if err != nil {
		return models.Candle{}, err
	}
	h, err := strconv.ParseFloat(row.High, 64)
	if err != nil {
		return models.Candle{}, err
	}
	l, err := strconv.ParseFloat(row.Low, 64)
	if err != nil {
		return models.Candle{}, err
	}
	c, err := strconv.ParseFloat(row.Close, 64)
	if err != nil {
		return models.Candle{}, err
	}
	v, _ := strconv.ParseFloat(row.Volume, 64)
	return models.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}, nil
}
