// Package providers delivers rendered notifications over each channel.
package providers

import (
	"context"
	"errors"
	"fmt"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

// ErrDeliveryFailed is returned when a channel exhausted its retries.
var ErrDeliveryFailed = errors.New("delivery failed")

// ChannelProvider delivers one rendered notification to one user on one channel.
type ChannelProvider interface {
	Channel() models.Channel
	Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error
}

// ContactPoints resolves a user's address on a channel.
type ContactPoints interface {
	GetContactPoint(ctx context.Context, userID string, channel models.Channel) (models.ContactPoint, error)
}

// contactFor returns the contact point, or ok=false when the user registered none.
// Only lookup failures other than "not found" are errors.
func contactFor(ctx context.Context, contacts ContactPoints, logger *logging.Logger, userID string, channel models.Channel, correlationID string) (models.ContactPoint, bool, error) {
	cp, err := contacts.GetContactPoint(ctx, userID, channel)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			logger.WithCorrelation(correlationID).Warnf("No %s contact point for user %s, skipping", channel, userID)
			return models.ContactPoint{}, false, nil
		}
		return models.ContactPoint{}, false, fmt.Errorf("failed to load %s contact point for user %s: %w", channel, userID, err)
	}
	return cp, true, nil
}

func deliveryFailed(channel models.Channel, userID string, err error) error {
	return fmt.Errorf("%w: %s to user %s: %v", ErrDeliveryFailed, channel, userID, err)
}
