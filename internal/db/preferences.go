package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-notification-service/internal/models"
)

// GetPreference loads a user's delivery settings. A user without a row gets ErrNotFound.
func (d *DB) GetPreference(ctx context.Context, userID string) (models.UserPreference, error) {
	var (
		p                  models.UserPreference
		channels, disabled []string
		start, end, digest *string
	)
	err := d.Pool.QueryRow(ctx, `
	SELECT user_id, channels, disabled_event_types, quiet_hours_start, quiet_hours_end, digest_frequency, updated_at
	FROM user_preferences
	WHERE user_id = $1`, userID).Scan(
		&p.UserID, &channels, &disabled, &start, &end, &digest, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserPreference{}, ErrNotFound
		}
		return models.UserPreference{}, fmt.Errorf("failed to get preferences for user_id %s: %w", userID, err)
	}

	p.Channels = stringsToChannels(channels)
	for _, name := range disabled {
		p.DisabledEventTypes = append(p.DisabledEventTypes, models.ParseEventType(name))
	}
	p.QuietHoursStart = deref(start)
	p.QuietHoursEnd = deref(end)
	p.DigestFrequency = deref(digest)
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
