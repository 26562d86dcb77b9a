package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"alert-notification-service/internal/models"
)

const (
	HeaderCorrelationID = "correlation_id"
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderOriginalTopic = "x-original-topic"
	HeaderError         = "x-error"
)

// BuildMessage wraps a payload for its event topic. The recipient id is the
// partition key so one user's events stay ordered; market events have no
// recipient and are spread round-robin.
func BuildMessage(p models.EventPayload, correlationID string) (kafka.Message, error) {
	value, err := p.Encode()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", p.EventID, err)
	}
	var key []byte
	if p.RecipientID != "" {
		key = []byte(p.RecipientID)
	}
	return kafka.Message{
		Topic: p.EventType.Topic(),
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderCorrelationID, Value: []byte(correlationID)},
			{Key: HeaderEventType, Value: []byte(p.EventType.String())},
			{Key: HeaderEventID, Value: []byte(p.EventID)},
		},
		Time: time.Now(),
	}, nil
}

// Header returns the first value of key, or "" when absent.
func Header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// CorrelationID returns the tracing id of msg, falling back to the event id header.
func CorrelationID(msg kafka.Message) string {
	if id := Header(msg, HeaderCorrelationID); id != "" {
		return id
	}
	return Header(msg, HeaderEventID)
}

// Topics maps event types to their broker topics.
func Topics(types []models.EventType) []string {
	topics := make([]string, 0, len(types))
	for _, t := range types {
		topics = append(topics, t.Topic())
	}
	return topics
}
