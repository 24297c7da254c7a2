package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// messageWriter is the subset of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes analysis outcome events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishAnalysisCompleted publishes an analysis completed event
// An empty requestID is replaced with a fresh one
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, requestID string, result *models.AnalysisResult) error {
	event := models.AnalysisEvent{
		EventType: models.EventAnalysisCompleted,
		RequestID: ensureRequestID(requestID),
		Ticker:    result.Ticker,
		Result:    result,
		Timestamp: p.now().UTC(),
	}
	return p.publish(ctx, result.Ticker, event)
}

// PublishAnalysisFailed publishes an analysis failed event carrying the error message
func (p *Producer) PublishAnalysisFailed(ctx context.Context, requestID, ticker string, cause error) error {
	event := models.AnalysisEvent{
		EventType: models.EventAnalysisFailed,
		RequestID: ensureRequestID(requestID),
		Ticker:    ticker,
		Error:     cause.Error(),
		Timestamp: p.now().UTC(),
	}
	return p.publish(ctx, ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.AnalysisEvent) error {
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

func ensureRequestID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
