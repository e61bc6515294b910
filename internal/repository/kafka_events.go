package repository

import (
	"context"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	"GoldenScan/pkg/kafka"
)

// KafkaEventSink publishes signal events to a Kafka topic, keyed by
// symbol so per-symbol ordering is preserved across partitions.
type KafkaEventSink struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaEventSink creates a sink writing to topic.
func NewKafkaEventSink(producer *kafka.Producer, topic string) *KafkaEventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

var _ drepo.EventSink = (*KafkaEventSink)(nil)

func (s *KafkaEventSink) Publish(ctx context.Context, ev *models.SignalEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(ev.Symbol), ev)
}

func (s *KafkaEventSink) Close() error {
	return s.producer.Close()
}
