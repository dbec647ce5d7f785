package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stockdata/stock-data-service/internal/models"
)

// Runner executes one ingestion run. Implemented by ingest.Coordinator.
type Runner interface {
	Run(ctx context.Context, symbols []string, startDate, endDate time.Time) (*models.RunSummary, error)
}

// RunDefaults fills in fields an ingest request left empty.
type RunDefaults struct {
	Symbols    []string
	WindowDays int
}

// Consumer listens for ingest requests and triggers runs. Scheduling stays
// with whoever publishes the requests; the consumer is only the transport
// between that external trigger and the coordinator.
type Consumer struct {
	reader   *kafka.Reader
	runner   Runner
	defaults RunDefaults
	logger   *slog.Logger
}

// NewConsumer creates a new Kafka consumer for ingest requests
func NewConsumer(brokers []string, topic, groupID string, runner Runner, defaults RunDefaults, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		runner:   runner,
		defaults: defaults,
		logger:   logger,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting ingest request consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("ingest request consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message", "error", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single ingest request
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Info("received ingest request",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)

	var req models.IngestRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal ingest request: %w", err)
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = c.defaults.Symbols
	}

	startDate, endDate := req.StartDate, req.EndDate
	if endDate.IsZero() {
		endDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if startDate.IsZero() {
		startDate = endDate.AddDate(0, 0, -c.defaults.WindowDays)
	}

	summary, err := c.runner.Run(ctx, symbols, startDate, endDate)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	c.logger.Info("ingest request handled", "total_written", summary.TotalWritten)
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
