package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-notification-service/internal/models"
)

func (d *DB) GetTemplate(ctx context.Context, eventType models.EventType) (models.NotificationTemplate, error) {
	t := models.NotificationTemplate{EventType: eventType}
	err := d.Pool.QueryRow(ctx, `
	SELECT subject, body, updated_at FROM notification_templates WHERE event_type = $1`,
		eventType.String()).Scan(&t.Subject, &t.Body, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotificationTemplate{}, ErrNotFound
		}
		return models.NotificationTemplate{}, fmt.Errorf("failed to get template for %s: %w", eventType, err)
	}
	return t, nil
}
