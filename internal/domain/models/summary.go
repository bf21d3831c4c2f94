package models

import "time"

// Trend labels the moving-average relationship of a series.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// PriceChange holds absolute and percentage change over a trailing period.
type PriceChange struct {
	Periods   int     `json:"periods"`
	Change    float64 `json:"change"`
	PctChange float64 `json:"pct_change"`
}

// CorrelationMatrix holds pairwise Pearson correlations over the close
// prices of several instruments, aligned by timestamp intersection.
type CorrelationMatrix struct {
	Instruments []string    `json:"instruments"`
	Matrix      [][]float64 `json:"matrix"`
	Points      int         `json:"points"` // aligned observations per pair
}

// Anomaly marks a close whose z-score against the series mean exceeds the
// detection threshold.
type Anomaly struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
	Score     float64   `json:"score"`
}

// MarketSummary is a per-instrument condensed view for the dashboard header.
type MarketSummary struct {
	Instrument   string        `json:"instrument"`
	Timestamp    time.Time     `json:"timestamp"`
	CurrentPrice float64       `json:"current_price"`
	Changes      []PriceChange `json:"changes"`
	Volatility   float64       `json:"volatility"` // annualized
	Trend        Trend         `json:"trend"`
	Support      float64       `json:"support"`
	Resistance   float64       `json:"resistance"`
}
