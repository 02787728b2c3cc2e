package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tickerwatch/ingest-service/internal/models"
)

// Producer publishes ingest pipeline events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishNewsIngested announces newly stored news links for a provider
func (p *Producer) PublishNewsIngested(ctx context.Context, providerName string, count int) error {
	return p.publish(ctx, providerName, models.IngestEvent{
		EventType: models.EventNewsIngested,
		Provider:  providerName,
		Count:     count,
		Timestamp: time.Now(),
	})
}

// PublishPricesIngested announces newly stored price ticks for a provider
func (p *Producer) PublishPricesIngested(ctx context.Context, providerName string, count int) error {
	return p.publish(ctx, providerName, models.IngestEvent{
		EventType: models.EventPricesIngested,
		Provider:  providerName,
		Count:     count,
		Timestamp: time.Now(),
	})
}

// PublishSocialIngested announces newly stored discussions for a provider
func (p *Producer) PublishSocialIngested(ctx context.Context, providerName string, count int) error {
	return p.publish(ctx, providerName, models.IngestEvent{
		EventType: models.EventSocialIngested,
		Provider:  providerName,
		Count:     count,
		Timestamp: time.Now(),
	})
}

// PublishBatchCommitted announces a downstream batch hand-off at the cutoff
func (p *Producer) PublishBatchCommitted(ctx context.Context, cutoff time.Time, pruned int64) error {
	return p.publish(ctx, models.EventBatchCommitted, models.IngestEvent{
		EventType: models.EventBatchCommitted,
		Count:     int(pruned),
		Cutoff:    cutoff.UTC().Format(time.RFC3339),
		Timestamp: time.Now(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.IngestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
