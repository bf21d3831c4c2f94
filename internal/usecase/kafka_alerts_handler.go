package usecase

import (
	"context"
	"encoding/json"
	"time"

	"EnergyPulse/internal/domain/models"
	drepo "EnergyPulse/internal/domain/repository"
	pkgkafka "EnergyPulse/pkg/kafka"
)

// KafkaAlertsHandler consumes alert events from Kafka and lands them in the
// history store. Runs in the consumer worker pool; redelivery after a storage
// error is handled by the consumer's retry policy.
type KafkaAlertsHandler struct {
	topic   string
	store   drepo.AlertStore
	metrics drepo.Metrics
}

// NewKafkaAlertsHandler creates the handler for one topic.
func NewKafkaAlertsHandler(topic string, store drepo.AlertStore, metrics drepo.Metrics) *KafkaAlertsHandler {
	return &KafkaAlertsHandler{topic: topic, store: store, metrics: metrics}
}

// Topic implements kafka.MessageHandler.
func (h *KafkaAlertsHandler) Topic() string { return h.topic }

// Handle implements kafka.MessageHandler.
func (h *KafkaAlertsHandler) Handle(ctx context.Context, b []byte) error {
	var e models.AlertEvent
	if err := json.Unmarshal(b, &e); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_unmarshal")
		}
		return err
	}
	if e.TriggeredAt.IsZero() {
		e.TriggeredAt = time.Now()
	}

	start := time.Now()
	err := h.store.Store(ctx, &e)
	if h.metrics != nil {
		h.metrics.RecordLatency("alert_store_seconds", time.Since(start).Seconds())
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_store")
		}
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAlertsHandler)(nil)
