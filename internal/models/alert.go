package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelInApp    Channel = "IN_APP"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelSMS      Channel = "SMS"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelInApp, ChannelTelegram, ChannelSMS:
		return true
	default:
		return false
	}
}

type AlertKind string

const (
	AlertKindPrice         AlertKind = "PRICE"
	AlertKindPercentChange AlertKind = "PERCENT_CHANGE"
	AlertKindCurrencyRate  AlertKind = "CURRENCY_RATE"
	AlertKindCountryRisk   AlertKind = "COUNTRY_RISK"
)

func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindPrice, AlertKindPercentChange, AlertKindCurrencyRate, AlertKindCountryRisk:
		return true
	default:
		return false
	}
}

type AlertCondition string

const (
	ConditionAbove   AlertCondition = "ABOVE"
	ConditionBelow   AlertCondition = "BELOW"
	ConditionPctUp   AlertCondition = "PCT_UP"
	ConditionPctDown AlertCondition = "PCT_DOWN"
	ConditionCrosses AlertCondition = "CROSSES"
)

func (c AlertCondition) Valid() bool {
	switch c {
	case ConditionAbove, ConditionBelow, ConditionPctUp, ConditionPctDown, ConditionCrosses:
		return true
	default:
		return false
	}
}

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "ACTIVE"
	AlertStatusPaused    AlertStatus = "PAUSED"
	AlertStatusTriggered AlertStatus = "TRIGGERED"
)

const (
	// AlertCooldown is the minimum spacing between firings of a recurring alert.
	AlertCooldown = 60 * time.Second
	// MaxActiveAlertsPerUser caps how many ACTIVE alerts one user may hold.
	MaxActiveAlertsPerUser = 20
)

// Alert is a user's standing rule comparing a live market value to a threshold.
type Alert struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	AssetID         *string         `json:"asset_id,omitempty"`
	Kind            AlertKind       `json:"kind"`
	Condition       AlertCondition  `json:"condition"`
	Threshold       decimal.Decimal `json:"threshold"`
	Period          *string         `json:"period,omitempty"`
	Channels        []Channel       `json:"channels"`
	Recurring       bool            `json:"recurring"`
	Status          AlertStatus     `json:"status"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// CanTrigger reports whether the alert is allowed to fire at now.
// A non-recurring alert fires at most once; a recurring one at most once per cooldown.
func (a *Alert) CanTrigger(now time.Time) bool {
	if a.Status != AlertStatusActive {
		return false
	}
	if a.LastTriggeredAt == nil {
		return true
	}
	if !a.Recurring {
		return false
	}
	return now.Sub(*a.LastTriggeredAt) >= AlertCooldown
}

// Evaluate applies the alert condition to value. CROSSES does not track
// direction and behaves like ABOVE.
func (a *Alert) Evaluate(value decimal.Decimal) bool {
	switch a.Condition {
	case ConditionAbove, ConditionPctUp, ConditionCrosses:
		return value.GreaterThanOrEqual(a.Threshold)
	case ConditionBelow, ConditionPctDown:
		return value.LessThanOrEqual(a.Threshold)
	default:
		return false
	}
}

// Trigger records a firing at now.
func (a *Alert) Trigger(now time.Time) {
	t := now
	a.LastTriggeredAt = &t
	a.UpdatedAt = now
	if !a.Recurring {
		a.Status = AlertStatusTriggered
	}
}

// MatchesPeriod is true when the alert has no period tag or the tag equals period.
func (a *Alert) MatchesPeriod(period string) bool {
	if a.Period == nil || *a.Period == "" {
		return true
	}
	return *a.Period == period
}
