package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alert-notification-service/internal/models"
)

const notificationColumns = `
	id::text, user_id, alert_id::text, title, body, type, metadata, read, read_at, created_at`

// CreateNotification inserts the user-visible record of a dispatched event.
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Metadata == nil {
		n.Metadata = map[string]interface{}{}
	}

	query := `
	INSERT INTO notifications (id, user_id, alert_id, title, body, type, metadata, read, read_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.UserID, n.AlertID, n.Title, n.Body, n.Type.String(),
		n.Metadata, n.Read, n.ReadAt, n.CreatedAt)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// ListNotificationsByUser returns the user's inbox, newest first.
func (d *DB) ListNotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
	FROM notifications
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications by user_id %s: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read.
func (d *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result, err := d.Pool.Exec(ctx, `
	UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, NOW())
	WHERE id::text = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the user and
// returns how many changed.
func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result, err := d.Pool.Exec(ctx, `
	UPDATE notifications SET read = TRUE, read_at = NOW()
	WHERE user_id = $1 AND read = FALSE AND deleted_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read for user_id %s: %w", userID, err)
	}
	return result.RowsAffected(), nil
}

func (d *DB) SoftDeleteNotification(ctx context.Context, userID, id string) error {
	result, err := d.Pool.Exec(ctx, `
	UPDATE notifications SET deleted_at = NOW()
	WHERE id::text = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (models.Notification, error) {
	var (
		n        models.Notification
		typeName string
	)
	err := row.Scan(&n.ID, &n.UserID, &n.AlertID, &n.Title, &n.Body, &typeName,
		&n.Metadata, &n.Read, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}
	n.Type = models.ParseEventType(typeName)
	return n, nil
}
