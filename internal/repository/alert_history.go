package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
)

const defaultAlertTable = "alert_events"

// alertSchema is idempotent; MergeTree ordered for the instrument+time scans
// the history endpoint issues.
var alertSchema = []string{
	`CREATE TABLE IF NOT EXISTS alert_events (
		triggered_at DateTime64(3),
		rule_id      String,
		instrument   LowCardinality(String),
		metric       LowCardinality(String),
		observed     Float64,
		threshold    Float64,
		severity     LowCardinality(String),
		message      String
	) ENGINE = MergeTree()
	ORDER BY (instrument, triggered_at)
	TTL toDateTime(triggered_at) + INTERVAL 90 DAY`,
}

// ClickHouseAlertStore persists alert history in ClickHouse.
type ClickHouseAlertStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseAlertStore creates the store on an existing connection pool.
func NewClickHouseAlertStore(db *sql.DB) drepo.AlertStore {
	return &ClickHouseAlertStore{db: db, table: defaultAlertTable}
}

// Init creates the alert_events table if missing.
func (s *ClickHouseAlertStore) Init(ctx context.Context) error {
	for _, stmt := range alertSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("alert schema: %w", err)
		}
	}
	return nil
}

// Store inserts one event.
func (s *ClickHouseAlertStore) Store(ctx context.Context, e *models.AlertEvent) error {
	return s.StoreBatch(ctx, []*models.AlertEvent{e})
}

// StoreBatch inserts events as one multi-row statement per chunk.
func (s *ClickHouseAlertStore) StoreBatch(ctx context.Context, events []*models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	const chunkSize = 1000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, e := range events[start:end] {
			if e == nil || e.Instrument == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				e.TriggeredAt,
				e.RuleID,
				e.Instrument,
				e.Metric,
				e.Observed,
				e.Threshold,
				string(e.Severity),
				e.Message,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (triggered_at, rule_id, instrument, metric, observed, threshold, severity, message) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("alert insert: %w", err)
		}
	}
	return nil
}

// Query returns events in [from, to], newest first. Empty instrument matches
// all instruments.
func (s *ClickHouseAlertStore) Query(ctx context.Context, instrument string, from, to time.Time, limit int) ([]*models.AlertEvent, error) {
	if limit <= 0 {
		limit = 1000
	}

	q := fmt.Sprintf("SELECT triggered_at, rule_id, instrument, metric, observed, threshold, severity, message FROM %s WHERE triggered_at >= ? AND triggered_at <= ?", s.table)
	args := []interface{}{from, to}
	if instrument != "" {
		q += " AND instrument = ?"
		args = append(args, instrument)
	}
	q += " ORDER BY triggered_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("alert query: %w", err)
	}
	defer rows.Close()

	var events []*models.AlertEvent
	for rows.Next() {
		var e models.AlertEvent
		var severity string
		if err := rows.Scan(&e.TriggeredAt, &e.RuleID, &e.Instrument, &e.Metric,
			&e.Observed, &e.Threshold, &severity, &e.Message); err != nil {
			return nil, err
		}
		e.Severity = models.Severity(severity)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Health pings the pool.
func (s *ClickHouseAlertStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool is owned by pkg/clickhouse.
func (s *ClickHouseAlertStore) Close() error {
	return nil
}
