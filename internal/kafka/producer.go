package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

const writeTimeout = 10 * time.Second

// Writer is the subset of *kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes and dead-lettered messages. The writer has
// no fixed topic; every message carries its own.
type Producer struct {
	writer          Writer
	deadLetterTopic string
	logger          *logging.Logger
}

type ProducerConfig struct {
	Brokers          []string
	DeadLetterTopic  string
	AutoCreateTopics bool
}

func NewProducer(cfg ProducerConfig, logger *logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if cfg.DeadLetterTopic == "" {
		return nil, fmt.Errorf("dead letter topic cannot be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}
	logger.Infof("Kafka producer configured: brokers=%v dead_letter_topic=%s", cfg.Brokers, cfg.DeadLetterTopic)
	return NewProducerWithWriter(w, cfg.DeadLetterTopic, logger), nil
}

func NewProducerWithWriter(w Writer, deadLetterTopic string, logger *logging.Logger) *Producer {
	return &Producer{writer: w, deadLetterTopic: deadLetterTopic, logger: logger}
}

// Publish writes p to notification.<eventType> tagged with correlationID.
func (p *Producer) Publish(ctx context.Context, payload models.EventPayload, correlationID string) error {
	msg, err := BuildMessage(payload, correlationID)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s to %s: %w", payload.EventID, msg.Topic, err)
	}
	p.logger.WithCorrelation(correlationID).Debugf("Published event %s to %s", payload.EventID, msg.Topic)
	return nil
}

// DeadLetter copies msg to the dead-letter topic with its origin and failure reason.
func (p *Producer) DeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	headers = append(headers, msg.Headers...)
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderError, Value: []byte(reason)},
	)

	dl := kafka.Message{
		Topic:   p.deadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, dl); err != nil {
		return fmt.Errorf("failed to dead-letter message from %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
