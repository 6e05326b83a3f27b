package outbox

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// KafkaSink publishes events keyed by aggregate so that all events of one
// invoice or consultation land on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Handle(ctx context.Context, ev models.OutboxEvent) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s-%s", ev.AggregateType, ev.AggregateID)),
		Value: []byte(ev.Payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
