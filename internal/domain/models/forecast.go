package models

import (
	"fmt"
	"time"
)

// ModelKind is the closed set of supported forecasting models.
type ModelKind string

const (
	ModelLinear ModelKind = "linear"
	ModelForest ModelKind = "random_forest"
)

// ParseModelKind maps a name to a kind, rejecting anything outside the set.
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(s) {
	case ModelLinear, ModelForest:
		return ModelKind(s), nil
	}
	return "", fmt.Errorf("unknown model kind %q: %w", s, ErrConfigInvalid)
}

// ForecastPoint is one projected step with its confidence bounds.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// ForecastMeta describes how a forecast was produced.
type ForecastMeta struct {
	Model          ModelKind `json:"model"`
	Horizon        int       `json:"horizon"`
	TrainingWindow int       `json:"training_window"`
	TrainMAE       float64   `json:"train_mae"`
	TestMAE        float64   `json:"test_mae"`
	TrainRMSE      float64   `json:"train_rmse"`
	TestRMSE       float64   `json:"test_rmse"`
}

// ForecastResult is a fresh per-request projection derived from exactly one
// PriceSeries snapshot. Not required to be bit-for-bit reproducible: the
// model is retrained each time.
type ForecastResult struct {
	Instrument string          `json:"instrument"`
	Points     []ForecastPoint `json:"points"`
	Meta       ForecastMeta    `json:"meta"`
	CreatedAt  time.Time       `json:"created_at"`
}
