package notify

import (
	"context"

	"EnergyPulse/internal/domain/models"
	pkgkafka "EnergyPulse/pkg/kafka"
)

// KafkaSink publishes fired alerts to a Kafka topic, keyed by instrument so
// per-instrument ordering survives partitioning. A consumer downstream lands
// them in the history store.
type KafkaSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSink creates the Kafka sink.
func NewKafkaSink(producer *pkgkafka.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

// Notify implements AlertSink.
func (s *KafkaSink) Notify(ctx context.Context, events []models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(e.Instrument),
			Value: e,
		}
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
