package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dias221467/Social_Graph/internal/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher writes events to one topic, keyed by actor id so that the
// events of one user keep their order within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher creates a producer for cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"security.protocol": cfg.Protocol,
		"acks":              "all",
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}

	p, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: p, topic: cfg.Topic}, nil
}

// Publish waits for the delivery report or for ctx to end.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", ev.Type, err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(ev.ActorID),
		Value:          payload,
		Timestamp:      ev.Timestamp,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
	}
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to enqueue event for topic %s: %w", p.topic, err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T: %v", e, e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed for topic %s: %w", p.topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context ended before delivery report for topic %s: %w", p.topic, ctx.Err())
	}
}

// Close flushes outstanding messages for up to 15 seconds.
func (p *KafkaPublisher) Close() {
	if remaining := p.producer.Flush(15 * 1000); remaining > 0 {
		logrus.WithField("remaining", remaining).Warn("Kafka producer closed with undelivered events")
	}
	p.producer.Close()
}
