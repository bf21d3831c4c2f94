package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// IndicatorKind is the closed set of supported indicators.
type IndicatorKind string

const (
	IndicatorSMA             IndicatorKind = "SMA"
	IndicatorEMA             IndicatorKind = "EMA"
	IndicatorRSI             IndicatorKind = "RSI"
	IndicatorBollingerUpper  IndicatorKind = "BB_UPPER"
	IndicatorBollingerMiddle IndicatorKind = "BB_MIDDLE"
	IndicatorBollingerLower  IndicatorKind = "BB_LOWER"
	IndicatorVolatility      IndicatorKind = "VOLATILITY"
	IndicatorROC             IndicatorKind = "ROC"
)

// ParseIndicatorKind maps a name to a kind, rejecting anything outside the set.
func ParseIndicatorKind(s string) (IndicatorKind, error) {
	switch IndicatorKind(s) {
	case IndicatorSMA, IndicatorEMA, IndicatorRSI,
		IndicatorBollingerUpper, IndicatorBollingerMiddle, IndicatorBollingerLower,
		IndicatorVolatility, IndicatorROC:
		return IndicatorKind(s), nil
	}
	return "", fmt.Errorf("unknown indicator %q: %w", s, ErrConfigInvalid)
}

// IndicatorRequest names one indicator computation over a trailing window.
type IndicatorRequest struct {
	Kind   IndicatorKind `json:"kind"`
	Window int           `json:"window"`
}

// Name returns the conventional series key, e.g. "SMA_20" or "RSI_14".
func (r IndicatorRequest) Name() string {
	return fmt.Sprintf("%s_%d", r.Kind, r.Window)
}

// IndicatorSet holds named indicator series aligned with one PriceSeries
// snapshot. Undefined head values are NaN.
type IndicatorSet struct {
	Instrument string               `json:"instrument"`
	Timestamps []time.Time          `json:"timestamps"`
	Series     map[string][]float64 `json:"series"`
}

// jsonSeries renders non-finite values as null, which encoding/json
// otherwise refuses to marshal.
type jsonSeries []float64

func (s jsonSeries) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(s))
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = json.RawMessage("null")
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return json.Marshal(out)
}

// MarshalJSON emits null for the undefined NaN head values in each series.
func (s IndicatorSet) MarshalJSON() ([]byte, error) {
	series := make(map[string]jsonSeries, len(s.Series))
	for name, vals := range s.Series {
		series[name] = jsonSeries(vals)
	}
	return json.Marshal(struct {
		Instrument string                `json:"instrument"`
		Timestamps []time.Time           `json:"timestamps"`
		Series     map[string]jsonSeries `json:"series"`
	}{
		Instrument: s.Instrument,
		Timestamps: s.Timestamps,
		Series:     series,
	})
}

// Last returns the most recent defined value of a named series.
func (s *IndicatorSet) Last(name string) (float64, bool) {
	vals, ok := s.Series[name]
	if !ok {
		return 0, false
	}
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i], true
		}
	}
	return 0, false
}
