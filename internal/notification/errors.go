package notification

import (
	"errors"

	kafkax "alert-notification-service/internal/kafka"
)

var (
	// ErrPreferencesNotFound: the recipient has no delivery settings and receives nothing.
	ErrPreferencesNotFound = errors.New("user preferences not found")
	// ErrTemplateNotFound: no content is defined for the event type.
	ErrTemplateNotFound = errors.New("notification template not found")
	// ErrInvalidPayload: the broker message is not a usable event envelope.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// IsBusinessDiscard reports whether err is an expected, non-retryable outcome.
func IsBusinessDiscard(err error) bool {
	return errors.Is(err, ErrPreferencesNotFound) || errors.Is(err, ErrTemplateNotFound)
}

// DispatchPolicy acks business discards and dead-letters everything else,
// undecodable envelopes included.
func DispatchPolicy(err error) kafkax.Outcome {
	if IsBusinessDiscard(err) {
		return kafkax.Ack
	}
	return kafkax.DeadLetter
}
