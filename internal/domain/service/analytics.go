package service

import (
	"context"

	"EnergyPulse/internal/domain/models"
)

// IndicatorEngine derives technical indicator series from a price snapshot.
type IndicatorEngine interface {
	Compute(series *models.PriceSeries, requests []models.IndicatorRequest) *models.IndicatorSet
}

// ForecastEngine trains a fresh model on the series and projects horizon
// steps. Technical features are derived from the series snapshot itself so
// each iterative step can recompute them.
type ForecastEngine interface {
	Forecast(ctx context.Context, series *models.PriceSeries,
		horizon int, kind models.ModelKind) (*models.ForecastResult, error)
}

// AlertEvaluator compares derived values against configured rules. It owns the
// per-rule cooldown state across calls.
type AlertEvaluator interface {
	Evaluate(series *models.PriceSeries, indicators *models.IndicatorSet,
		rules []models.AlertRule) []models.AlertEvent
}

// SummaryAnalyzer condenses a series into the dashboard header view and
// runs the cross-instrument statistics built on top of it.
type SummaryAnalyzer interface {
	Summarize(series *models.PriceSeries) (*models.MarketSummary, error)
	Correlate(series []*models.PriceSeries) (*models.CorrelationMatrix, error)
	Anomalies(series *models.PriceSeries, threshold float64) ([]models.Anomaly, error)
}
