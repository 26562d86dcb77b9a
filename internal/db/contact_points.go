package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-notification-service/internal/models"
)

// GetContactPoint returns the newest active contact point of a user for one channel.
func (d *DB) GetContactPoint(ctx context.Context, userID string, channel models.Channel) (models.ContactPoint, error) {
	query := `
	SELECT id::text, user_id, channel, configuration, status, created_at, updated_at
	FROM contact_points
	WHERE user_id = $1 AND channel = $2 AND status = 'active'
	ORDER BY updated_at DESC
	LIMIT 1`

	var (
		cp models.ContactPoint
		ch string
	)
	err := d.Pool.QueryRow(ctx, query, userID, string(channel)).Scan(
		&cp.ID,
		&cp.UserID,
		&ch,
		&cp.Configuration, // JSONB decodes straight into the map
		&cp.Status,
		&cp.CreatedAt,
		&cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ContactPoint{}, ErrNotFound
		}
		return models.ContactPoint{}, fmt.Errorf("failed to get contact point: %w", err)
	}
	cp.Channel = models.Channel(ch)
	return cp, nil
}
