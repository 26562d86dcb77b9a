package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

var (
	ErrAlertLimitReached = fmt.Errorf("active alert limit of %d reached", models.MaxActiveAlertsPerUser)
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrInvalidAlert      = errors.New("invalid alert")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the alert persistence the user-facing operations need.
type Store interface {
	CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	CountActiveAlertsByUser(ctx context.Context, userID string) (int, error)
	ListAlertsByUser(ctx context.Context, userID string) ([]models.Alert, error)
	GetAlert(ctx context.Context, userID, id string) (models.Alert, error)
	UpdateAlertStatus(ctx context.Context, userID, id string, status models.AlertStatus) error
	SoftDeleteAlert(ctx context.Context, userID, id string) error
}

type CreateAlertRequest struct {
	UserID    string                `json:"user_id"`
	AssetID   *string               `json:"asset_id,omitempty"`
	Kind      models.AlertKind      `json:"kind"`
	Condition models.AlertCondition `json:"condition"`
	Threshold string                `json:"threshold"`
	Period    *string               `json:"period,omitempty"`
	Channels  []models.Channel      `json:"channels"`
	Recurring bool                  `json:"recurring"`
}

type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create validates req and stores a new ACTIVE alert, refusing once the user
// holds the maximum number of active alerts.
func (s *Service) Create(ctx context.Context, req CreateAlertRequest) (models.Alert, error) {
	threshold, err := validate(req)
	if err != nil {
		return models.Alert{}, err
	}
	if err := s.checkLimit(ctx, req.UserID); err != nil {
		return models.Alert{}, err
	}

	a, err := s.store.CreateAlert(ctx, models.Alert{
		UserID:    req.UserID,
		AssetID:   req.AssetID,
		Kind:      req.Kind,
		Condition: req.Condition,
		Threshold: threshold,
		Period:    req.Period,
		Channels:  req.Channels,
		Recurring: req.Recurring,
		Status:    models.AlertStatusActive,
	})
	if err != nil {
		return models.Alert{}, err
	}
	s.logger.Infof("Created alert %s for user %s: %s %s %s", a.ID, a.UserID, a.Kind, a.Condition, a.Threshold)
	return a, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.store.ListAlertsByUser(ctx, userID)
}

// Pause stops an ACTIVE alert from being evaluated.
func (s *Service) Pause(ctx context.Context, userID, id string) error {
	a, err := s.store.GetAlert(ctx, userID, id)
	if err != nil {
		return err
	}
	if a.Status != models.AlertStatusActive {
		return fmt.Errorf("%w: %s alert cannot be paused", ErrInvalidTransition, a.Status)
	}
	return s.store.UpdateAlertStatus(ctx, userID, id, models.AlertStatusPaused)
}

// Resume reactivates a PAUSED alert, subject to the active-alert ceiling.
// A TRIGGERED one-shot alert stays spent.
func (s *Service) Resume(ctx context.Context, userID, id string) error {
	a, err := s.store.GetAlert(ctx, userID, id)
	if err != nil {
		return err
	}
	if a.Status != models.AlertStatusPaused {
		return fmt.Errorf("%w: %s alert cannot be resumed", ErrInvalidTransition, a.Status)
	}
	if err := s.checkLimit(ctx, userID); err != nil {
		return err
	}
	return s.store.UpdateAlertStatus(ctx, userID, id, models.AlertStatusActive)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.SoftDeleteAlert(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Infof("Deleted alert %s for user %s", id, userID)
	return nil
}

func (s *Service) checkLimit(ctx context.Context, userID string) error {
	n, err := s.store.CountActiveAlertsByUser(ctx, userID)
	if err != nil {
		return err
	}
	if n >= models.MaxActiveAlertsPerUser {
		return ErrAlertLimitReached
	}
	return nil
}

func validate(req CreateAlertRequest) (decimal.Decimal, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: user_id is required", ErrInvalidAlert)
	}
	if !req.Kind.Valid() {
		return decimal.Decimal{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAlert, req.Kind)
	}
	if !req.Condition.Valid() {
		return decimal.Decimal{}, fmt.Errorf("%w: unknown condition %q", ErrInvalidAlert, req.Condition)
	}
	if (req.Kind == models.AlertKindPrice || req.Kind == models.AlertKindPercentChange) &&
		(req.AssetID == nil || *req.AssetID == "") {
		return decimal.Decimal{}, fmt.Errorf("%w: %s alerts need an asset_id", ErrInvalidAlert, req.Kind)
	}
	if len(req.Channels) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: at least one channel is required", ErrInvalidAlert)
	}
	for _, c := range req.Channels {
		if !c.Valid() {
			return decimal.Decimal{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidAlert, c)
		}
	}

	threshold, err := decimal.NewFromString(strings.TrimSpace(req.Threshold))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidThreshold, req.Threshold)
	}
	// Levels are positive; a percent change may be negative.
	if req.Kind != models.AlertKindPercentChange && !threshold.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s threshold must be positive", ErrInvalidThreshold, req.Kind)
	}
	return threshold, nil
}
