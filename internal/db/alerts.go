package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"alert-notification-service/internal/models"
)

const alertColumns = `
	id::text, user_id, asset_id, kind, condition, threshold::text, period, channels,
	recurring, status, last_triggered_at, version, created_at, updated_at`

// CreateAlert inserts a new alert. ID and timestamps are assigned here.
func (d *DB) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Version = 0

	query := `
	INSERT INTO alerts (
		id, user_id, asset_id, kind, condition, threshold, period, channels,
		recurring, status, last_triggered_at, version, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := d.Pool.Exec(ctx, query,
		a.ID, a.UserID, a.AssetID, string(a.Kind), string(a.Condition), a.Threshold.String(),
		a.Period, channelsToStrings(a.Channels), a.Recurring, string(a.Status),
		a.LastTriggeredAt, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return a, nil
}

// CountActiveAlertsByUser counts the user's ACTIVE, non-deleted alerts.
func (d *DB) CountActiveAlertsByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = $1 AND status = 'ACTIVE' AND deleted_at IS NULL`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts for user %s: %w", userID, err)
	}
	return n, nil
}

// FindActiveAlertsByAsset loads ACTIVE alerts scoped to assetID.
func (d *DB) FindActiveAlertsByAsset(ctx context.Context, assetID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + `
	FROM alerts
	WHERE asset_id = $1 AND status = 'ACTIVE' AND deleted_at IS NULL`
	return d.queryAlerts(ctx, query, assetID)
}

// FindActiveAlertsByKind loads ACTIVE alerts of the given kind regardless of asset.
func (d *DB) FindActiveAlertsByKind(ctx context.Context, kind models.AlertKind) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + `
	FROM alerts
	WHERE kind = $1 AND status = 'ACTIVE' AND deleted_at IS NULL`
	return d.queryAlerts(ctx, query, string(kind))
}

// ListAlertsByUser returns the user's non-deleted alerts, newest first.
func (d *DB) ListAlertsByUser(ctx context.Context, userID string) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + `
	FROM alerts
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY created_at DESC`
	return d.queryAlerts(ctx, query, userID)
}

// GetAlert loads one non-deleted alert owned by userID.
func (d *DB) GetAlert(ctx context.Context, userID, id string) (models.Alert, error) {
	query := `SELECT ` + alertColumns + `
	FROM alerts
	WHERE id::text = $1 AND user_id = $2 AND deleted_at IS NULL`
	a, err := scanAlert(d.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Alert{}, ErrNotFound
		}
		return models.Alert{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return a, nil
}

// SaveTriggerState persists status and last_triggered_at guarded by the version the
// alert was read at. On success a.Version is advanced; a lost race returns ErrVersionConflict.
func (d *DB) SaveTriggerState(ctx context.Context, a *models.Alert) error {
	query := `
	UPDATE alerts
	SET status = $1, last_triggered_at = $2, updated_at = $3, version = version + 1
	WHERE id::text = $4 AND version = $5 AND deleted_at IS NULL`

	tag, err := d.Pool.Exec(ctx, query, string(a.Status), a.LastTriggeredAt, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("failed to save trigger state for alert %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	a.Version++
	return nil
}

// UpdateAlertStatus changes a user's alert status (pause/resume).
func (d *DB) UpdateAlertStatus(ctx context.Context, userID, id string, status models.AlertStatus) error {
	tag, err := d.Pool.Exec(ctx, `
	UPDATE alerts SET status = $1, updated_at = NOW(), version = version + 1
	WHERE id::text = $2 AND user_id = $3 AND deleted_at IS NULL`,
		string(status), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteAlert marks the alert deleted; it is never evaluated again.
func (d *DB) SoftDeleteAlert(ctx context.Context, userID, id string) error {
	tag, err := d.Pool.Exec(ctx, `
	UPDATE alerts SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
	WHERE id::text = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return list, nil
}

func scanAlert(row pgx.Row) (models.Alert, error) {
	var (
		a                       models.Alert
		kind, condition, status string
		threshold               string
		channels                []string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.AssetID, &kind, &condition, &threshold, &a.Period, &channels,
		&a.Recurring, &status, &a.LastTriggeredAt, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return models.Alert{}, err
	}
	a.Kind = models.AlertKind(kind)
	a.Condition = models.AlertCondition(condition)
	a.Status = models.AlertStatus(status)
	a.Channels = stringsToChannels(channels)
	a.Threshold, err = decimal.NewFromString(threshold)
	if err != nil {
		return models.Alert{}, fmt.Errorf("invalid threshold %q for alert %s: %w", threshold, a.ID, err)
	}
	return a, nil
}

func channelsToStrings(cs []models.Channel) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}

func stringsToChannels(ss []string) []models.Channel {
	out := make([]models.Channel, 0, len(ss))
	for _, s := range ss {
		out = append(out, models.Channel(s))
	}
	return out
}
