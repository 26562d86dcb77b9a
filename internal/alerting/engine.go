// Package alerting evaluates user alert rules against market changes and
// manages the alert lifecycle.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
)

// Repository is the alert persistence the engine reads and writes.
type Repository interface {
	FindActiveAlertsByAsset(ctx context.Context, assetID string) ([]models.Alert, error)
	FindActiveAlertsByKind(ctx context.Context, kind models.AlertKind) ([]models.Alert, error)
	SaveTriggerState(ctx context.Context, a *models.Alert) error
}

// MarketChange is one observed market value.
type MarketChange struct {
	Source    models.MarketSource
	AssetID   string
	RateType  string
	Value     decimal.Decimal
	PctChange *decimal.Decimal
	Metadata  map[string]interface{}
}

type Engine struct {
	repo    Repository
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewEngine(repo Repository, logger *logging.Logger, m *metrics.Metrics) *Engine {
	return &Engine{repo: repo, logger: logger, metrics: m, now: time.Now}
}

// Evaluate fires every ACTIVE alert in scope of change whose cooldown allows it
// and whose condition holds, persists the new trigger state and returns exactly
// the alerts that fired. An alert whose version moved underneath us was fired by
// a concurrent evaluation and is left out. Save failures are joined into the
// returned error; the remaining candidates are still evaluated.
func (e *Engine) Evaluate(ctx context.Context, change MarketChange) ([]models.Alert, error) {
	candidates, err := e.candidates(ctx, change)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	var (
		fired []models.Alert
		errs  []error
	)
	for i := range candidates {
		a := candidates[i]
		if !a.CanTrigger(now) {
			continue
		}
		value, ok := valueFor(a, change)
		if !ok || !a.Evaluate(value) {
			continue
		}

		a.Trigger(now)
		if err := e.repo.SaveTriggerState(ctx, &a); err != nil {
			if errors.Is(err, db.ErrVersionConflict) {
				e.logger.Infof("Alert %s was triggered concurrently, skipping", a.ID)
				continue
			}
			errs = append(errs, fmt.Errorf("alert %s: %w", a.ID, err))
			continue
		}
		e.metrics.AlertTriggered(string(a.Kind))
		fired = append(fired, a)
	}
	return fired, errors.Join(errs...)
}

func (e *Engine) candidates(ctx context.Context, change MarketChange) ([]models.Alert, error) {
	switch change.Source {
	case models.SourceQuote:
		if change.AssetID == "" {
			return nil, fmt.Errorf("quote change without asset id")
		}
		return e.repo.FindActiveAlertsByAsset(ctx, change.AssetID)
	case models.SourceCurrencyRate:
		alerts, err := e.repo.FindActiveAlertsByKind(ctx, models.AlertKindCurrencyRate)
		if err != nil {
			return nil, err
		}
		var matched []models.Alert
		for _, a := range alerts {
			if a.MatchesPeriod(change.RateType) {
				matched = append(matched, a)
			}
		}
		return matched, nil
	case models.SourceRiskIndex:
		return e.repo.FindActiveAlertsByKind(ctx, models.AlertKindCountryRisk)
	default:
		return nil, fmt.Errorf("unsupported market source %q", change.Source)
	}
}

// valueFor picks the number an alert compares: percent-change alerts read the
// daily change, everything else the level.
func valueFor(a models.Alert, change MarketChange) (decimal.Decimal, bool) {
	if a.Kind == models.AlertKindPercentChange {
		if change.PctChange == nil {
			return decimal.Decimal{}, false
		}
		return *change.PctChange, true
	}
	return change.Value, true
}
