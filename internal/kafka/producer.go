package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stockdata/stock-data-service/internal/models"
)

// EventRunCompleted is published after every ingestion run.
const EventRunCompleted = "INGESTION_RUN_COMPLETED"

// Producer handles publishing ingestion events to Kafka
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

// PublishRunCompleted publishes a run summary after an ingestion run.
func (p *Producer) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	event := models.RunEvent{
		EventType: EventRunCompleted,
		Summary:   summary,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventType),
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
