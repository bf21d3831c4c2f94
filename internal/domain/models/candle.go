package models

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV record for a time interval.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an ordered OHLCV series for a single instrument.
// Timestamps are strictly increasing; the series is immutable once built.
type PriceSeries struct {
	Instrument string    `json:"instrument"`
	Provider   string    `json:"provider"`
	Interval   string    `json:"interval"` // "1d", "1h"
	Candles    []Candle  `json:"candles"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// NewPriceSeries validates ordering and builds an immutable series snapshot.
func NewPriceSeries(instrument, provider, interval string, candles []Candle) (*PriceSeries, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return nil, fmt.Errorf("series %s: timestamps not strictly increasing at index %d: %w",
				instrument, i, ErrDataUnavailable)
		}
	}
	return &PriceSeries{
		Instrument: instrument,
		Provider:   provider,
		Interval:   interval,
		Candles:    candles,
		FetchedAt:  time.Now(),
	}, nil
}

// Len returns the number of candles.
func (s *PriceSeries) Len() int { return len(s.Candles) }

// Closes returns the close prices as a slice aligned with Timestamps.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Timestamps returns the candle timestamps.
func (s *PriceSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Timestamp
	}
	return out
}

// Last returns the most recent candle, or false on an empty series.
func (s *PriceSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Step returns the spacing between the last two candles, or 24h for short series.
func (s *PriceSeries) Step() time.Duration {
	if n := len(s.Candles); n >= 2 {
		return s.Candles[n-1].Timestamp.Sub(s.Candles[n-2].Timestamp)
	}
	return 24 * time.Hour
}
