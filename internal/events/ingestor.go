// Package events is the single write path into the broker: every event, whether
// posted over HTTP or produced by the market refresh job, passes the idempotency
// guard before it is published.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
)

var (
	// ErrInvalidEvent wraps payload validation failures.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrGuardUnavailable means the idempotency store could not be reached; the
	// event was not published.
	ErrGuardUnavailable = errors.New("idempotency store unavailable")
)

type Claimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Publisher interface {
	Publish(ctx context.Context, payload models.EventPayload, correlationID string) error
}

type Ingestor struct {
	guard     Claimer
	publisher Publisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewIngestor(guard Claimer, publisher Publisher, logger *logging.Logger, m *metrics.Metrics) *Ingestor {
	return &Ingestor{guard: guard, publisher: publisher, logger: logger, metrics: m, now: time.Now}
}

// Ingest validates, claims and publishes p. A duplicate returns (true, nil) and
// publishes nothing. An empty correlationID defaults to the event id.
func (i *Ingestor) Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error) {
	if err := p.Validate(); err != nil {
		i.metrics.EventIngested(p.EventType.String(), "invalid")
		return false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if correlationID == "" {
		correlationID = p.EventID
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = i.now().UTC()
	}
	log := i.logger.WithCorrelation(correlationID)

	fresh, err := i.guard.Claim(ctx, p.EventID)
	if err != nil {
		i.metrics.EventIngested(p.EventType.String(), "guard_error")
		return false, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	if !fresh {
		log.Infof("Duplicate event %s (%s) discarded", p.EventID, p.EventType)
		i.metrics.EventIngested(p.EventType.String(), "duplicate")
		return true, nil
	}

	if err := i.publisher.Publish(ctx, p, correlationID); err != nil {
		if rErr := i.guard.Release(ctx, p.EventID); rErr != nil {
			log.Errorf("Failed to release claim on %s: %v", p.EventID, rErr)
		}
		i.metrics.EventIngested(p.EventType.String(), "publish_error")
		return false, err
	}
	i.metrics.EventIngested(p.EventType.String(), "accepted")
	log.Infof("Accepted event %s (%s) for %s", p.EventID, p.EventType, p.RecipientID)
	return false, nil
}
