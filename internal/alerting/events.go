package alerting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"alert-notification-service/internal/models"
)

// Metadata keys of alert.triggered events.
const (
	MetaAlertID        = "alertId"
	MetaUserID         = "userId"
	MetaKind           = "kind"
	MetaCondition      = "condition"
	MetaThreshold      = "threshold"
	MetaTriggerValue   = "value"
	MetaTriggerSource  = "source"
	MetaSourceMetadata = "sourceMetadata"
	MetaChannels       = "channels"
)

// TriggeredEvent builds the alert.triggered payload for a fired alert. The event
// id derives from the alert and its firing time, so a redelivered evaluation of
// the same firing is caught by the idempotency guard.
func TriggeredEvent(a models.Alert, change MarketChange) models.EventPayload {
	meta := map[string]interface{}{
		MetaAlertID:        a.ID,
		MetaUserID:         a.UserID,
		MetaKind:           string(a.Kind),
		MetaCondition:      string(a.Condition),
		MetaThreshold:      a.Threshold.String(),
		MetaTriggerValue:   change.Value.String(),
		MetaTriggerSource:  string(change.Source),
		MetaSourceMetadata: change.Metadata,
	}
	if len(a.Channels) > 0 {
		channels := make([]string, 0, len(a.Channels))
		for _, c := range a.Channels {
			channels = append(channels, string(c))
		}
		meta[MetaChannels] = channels
	}
	if a.AssetID != nil {
		meta[models.MetaAssetID] = *a.AssetID
	} else if change.AssetID != "" {
		meta[models.MetaAssetID] = change.AssetID
	}
	if a.Kind == models.AlertKindPercentChange && change.PctChange != nil {
		meta[MetaTriggerValue] = change.PctChange.String()
	}
	if change.RateType != "" {
		meta[models.MetaRateType] = change.RateType
	}

	var firedAt int64
	occurredAt := a.UpdatedAt
	if a.LastTriggeredAt != nil {
		firedAt = a.LastTriggeredAt.UnixNano()
		occurredAt = *a.LastTriggeredAt
	}
	return models.EventPayload{
		EventID:     fmt.Sprintf("alert-%s-%d", a.ID, firedAt),
		EventType:   models.EventTypeAlertTriggered,
		RecipientID: a.UserID,
		Metadata:    meta,
		OccurredAt:  occurredAt,
	}
}

// ChangeFromPayload turns a market event into the change the engine evaluates.
func ChangeFromPayload(p models.EventPayload) (MarketChange, error) {
	change := MarketChange{Metadata: p.Metadata}
	var (
		value decimal.Decimal
		ok    bool
	)
	switch p.EventType {
	case models.EventTypeMarketQuote:
		change.Source = models.SourceQuote
		change.AssetID, _ = p.MetadataString(models.MetaAssetID)
		value, ok = p.MetadataDecimal(models.MetaPrice)
		if pct, has := p.MetadataDecimal(models.MetaPctChange); has {
			change.PctChange = &pct
		}
	case models.EventTypeMarketDollar:
		change.Source = models.SourceCurrencyRate
		change.RateType, _ = p.MetadataString(models.MetaRateType)
		value, ok = p.MetadataDecimal(models.MetaSell)
	case models.EventTypeMarketRisk:
		change.Source = models.SourceRiskIndex
		value, ok = p.MetadataDecimal(models.MetaValue)
	default:
		return MarketChange{}, fmt.Errorf("event type %s is not a market event", p.EventType)
	}
	if !ok {
		return MarketChange{}, fmt.Errorf("event %s has no numeric value", p.EventID)
	}
	change.Value = value
	return change, nil
}
