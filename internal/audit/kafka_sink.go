package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Producer is satisfied by client.KafkaProducer.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaSink publishes events as JSON keyed by bucket, so one actor's
// events stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	headers := map[string]string{
		"event_id": e.EventID,
		"action":   e.Action,
	}
	return s.producer.ProduceMessage(ctx, s.topic, []byte(strconv.Itoa(e.Bucket)), value, headers)
}
