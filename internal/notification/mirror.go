package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockroom/internal/domain"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
)

// Mirror forwards new notifications to an outside channel when notifications are enabled
type Mirror interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// RedisMirror publishes every notification as JSON on a Redis pub/sub channel
type RedisMirror struct {
	client  *redis.Client
	channel string
}

func NewRedisMirror(client *redis.Client, channel string) *RedisMirror {
	return &RedisMirror{client: client, channel: channel}
}

func (m *RedisMirror) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := m.client.Publish(ctx, m.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// KafkaMirror sends every notification to a Kafka topic
type KafkaMirror struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaMirror connects a synchronous producer to brokers
func NewKafkaMirror(brokers []string, topic string) (*KafkaMirror, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaMirrorWithProducer(producer, topic), nil
}

func NewKafkaMirrorWithProducer(producer sarama.SyncProducer, topic string) *KafkaMirror {
	return &KafkaMirror{producer: producer, topic: topic}
}

func (m *KafkaMirror) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(n.Type),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(n.Type)},
			{Key: []byte("event_id"), Value: []byte(n.ID)},
		},
	}

	if _, _, err := m.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (m *KafkaMirror) Close() error {
	if m.producer != nil {
		return m.producer.Close()
	}
	return nil
}

// MultiMirror publishes to every mirror and joins their errors
type MultiMirror []Mirror

func (mm MultiMirror) Publish(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, m := range mm {
		if err := m.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
