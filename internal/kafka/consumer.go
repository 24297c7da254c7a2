package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// Analyzer runs a reaction analysis for one ticker batch
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, timestamps []models.AnnouncementTimestamp) (*models.AnalysisResult, error)
}

// EventPublisher publishes analysis outcomes
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, requestID string, result *models.AnalysisResult) error
	PublishAnalysisFailed(ctx context.Context, requestID, ticker string, cause error) error
}

// Consumer handles analysis requests arriving on Kafka
// Results are published as events and never stored
type Consumer struct {
	reader    *kafka.Reader
	analyzer  Analyzer
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for analysis requests
func NewConsumer(brokers []string, topic, groupID string, analyzer Analyzer, publisher EventPublisher, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info().Msg("kafka consumer shutting down")
					return c.reader.Close()
				}
				c.logger.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("received message")

	var event models.AnalysisEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal analysis event: %w", err)
	}

	// Only process ANALYSIS_REQUESTED events
	if event.EventType != models.EventAnalysisRequested {
		c.logger.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}

	result, err := c.analyzer.Analyze(ctx, event.Ticker, event.DatesWithTimes)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("request_id", event.RequestID).
			Str("ticker", event.Ticker).
			Msg("analysis failed")
		if pubErr := c.publisher.PublishAnalysisFailed(ctx, event.RequestID, event.Ticker, err); pubErr != nil {
			return fmt.Errorf("failed to publish analysis failure: %w", pubErr)
		}
		return nil
	}

	if err := c.publisher.PublishAnalysisCompleted(ctx, event.RequestID, result); err != nil {
		return fmt.Errorf("failed to publish analysis result: %w", err)
	}

	c.logger.Info().
		Str("request_id", event.RequestID).
		Str("ticker", result.Ticker).
		Int("records", len(result.Records)).
		Msg("published analysis result")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
