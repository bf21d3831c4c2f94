package notify

import (
	"context"

	"EnergyPulse/internal/domain/models"
	"EnergyPulse/pkg/queue"
)

// AlertMessageType is the queue message type for alert events.
const AlertMessageType = "alert_event"

// QueueSink hands fired alerts to the Redis job queue; a registered job
// drains them into the history store with the queue's retry policy.
type QueueSink struct {
	q queue.QueueService
}

// NewQueueSink creates the queue sink.
func NewQueueSink(q queue.QueueService) *QueueSink {
	return &QueueSink{q: q}
}

// Notify implements AlertSink.
func (s *QueueSink) Notify(ctx context.Context, events []models.AlertEvent) error {
	for _, e := range events {
		if err := s.q.PublishMessage(ctx, AlertMessageType, e); err != nil {
			return err
		}
	}
	return nil
}

// Close implements AlertSink; the queue lifecycle is owned by the app.
func (s *QueueSink) Close() error { return nil }
