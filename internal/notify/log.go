package notify

import (
	"context"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/pkg/logger"
)

// LogSink writes fired alerts to the structured log. Always registered so an
// alert is visible even with no external sink configured.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates the log sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// Notify implements AlertSink.
func (s *LogSink) Notify(_ context.Context, events []models.AlertEvent) error {
	for _, e := range events {
		s.logger.Warn("alert fired",
			logger.String("rule", e.RuleID),
			logger.String("instrument", e.Instrument),
			logger.String("metric", e.Metric),
			logger.String("severity", string(e.Severity)),
			logger.Any("observed", e.Observed),
			logger.Any("threshold", e.Threshold),
			logger.String("message", e.Message))
	}
	return nil
}

// Close implements AlertSink.
func (s *LogSink) Close() error { return nil }
