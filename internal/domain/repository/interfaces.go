package repository

import (
	"context"
	"time"

	"EnergyPulse/internal/domain/models"
)

// MarketDataProvider fetches an OHLC series for one instrument over a range.
// Implementations perform exactly one network call per Fetch; retry policy
// lives in the pipeline, not here.
type MarketDataProvider interface {
	Name() string
	Fetch(ctx context.Context, instrument string, start, end time.Time) (*models.PriceSeries, error)
}

// AlertSink receives emitted alert events (log, WebSocket hub, Kafka, ...).
type AlertSink interface {
	Notify(ctx context.Context, events []models.AlertEvent) error
	Close() error
}

// AlertStore persists and queries alert history (optional pipeline).
type AlertStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, e *models.AlertEvent) error
	StoreBatch(ctx context.Context, events []*models.AlertEvent) error
	Query(ctx context.Context, instrument string, from, to time.Time, limit int) ([]*models.AlertEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordFetch(provider, instrument string, seconds float64)
	RecordError(kind string)
	RecordLastPrice(instrument string, price float64)
	RecordLatency(op string, seconds float64)
	RecordAlert(instrument string, severity string)
}
