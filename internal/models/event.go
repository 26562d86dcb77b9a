package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies what happened. Unrecognised wire names decode to
// EventTypeUnknown so newer producers do not break older consumers.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypePayment
	EventTypeSecurity
	EventTypeMarketing
	EventTypeTransfer
	EventTypeMarketDollar
	EventTypeMarketRisk
	EventTypeMarketQuote
	EventTypeAlertTriggered
)

// TopicPrefix is prepended to the event type wire name to build a broker topic.
const TopicPrefix = "notification."

var eventTypeNames = map[EventType]string{
	EventTypePayment:        "payment",
	EventTypeSecurity:       "security",
	EventTypeMarketing:      "marketing",
	EventTypeTransfer:       "transfer",
	EventTypeMarketDollar:   "market.dollar.updated",
	EventTypeMarketRisk:     "market.risk.updated",
	EventTypeMarketQuote:    "market.quote.updated",
	EventTypeAlertTriggered: "alert.triggered",
}

var eventTypesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeNames))
	for t, name := range eventTypeNames {
		m[name] = t
	}
	return m
}()

// ParseEventType maps a wire name to its EventType, EventTypeUnknown if not recognised.
func ParseEventType(name string) EventType {
	if t, ok := eventTypesByName[name]; ok {
		return t
	}
	return EventTypeUnknown
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether t is one of the supported event types.
func (t EventType) Known() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// Topic returns the broker topic events of this type are published to.
func (t EventType) Topic() string {
	return TopicPrefix + t.String()
}

// IsMarket reports whether the event feeds alert evaluation.
func (t EventType) IsMarket() bool {
	switch t {
	case EventTypeMarketDollar, EventTypeMarketRisk, EventTypeMarketQuote:
		return true
	default:
		return false
	}
}

// MarketEventTypes lists the event types consumed by alert evaluation.
func MarketEventTypes() []EventType {
	return []EventType{EventTypeMarketQuote, EventTypeMarketDollar, EventTypeMarketRisk}
}

// DispatchEventTypes lists the event types consumed by the notification dispatcher.
func DispatchEventTypes() []EventType {
	return []EventType{
		EventTypeAlertTriggered,
		EventTypePayment,
		EventTypeSecurity,
		EventTypeMarketing,
		EventTypeTransfer,
	}
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	*t = ParseEventType(string(b))
	return nil
}

// EventPayload is the envelope carried through the broker. EventID doubles as the
// idempotency key at the ingestion edge.
type EventPayload struct {
	EventID     string                 `json:"eventId"`
	EventType   EventType              `json:"eventType"`
	RecipientID string                 `json:"recipientId"`
	Metadata    map[string]interface{} `json:"metadata"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// Validate checks the fields every consumer relies on.
func (p EventPayload) Validate() error {
	if p.EventID == "" {
		return fmt.Errorf("eventId is required")
	}
	if !p.EventType.Known() {
		return fmt.Errorf("unsupported eventType %q", p.EventType)
	}
	if p.RecipientID == "" && !p.EventType.IsMarket() {
		return fmt.Errorf("recipientId is required for %s events", p.EventType)
	}
	return nil
}

// MetadataString returns metadata[key] if it is a non-empty string.
func (p EventPayload) MetadataString(key string) (string, bool) {
	v, ok := p.Metadata[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// MetadataDecimal reads a numeric metadata value published either as a decimal
// string or a JSON number.
func (p EventPayload) MetadataDecimal(key string) (decimal.Decimal, bool) {
	switch v := p.Metadata[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// Encode serialises the payload for the broker.
func (p EventPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodeEventPayload parses a broker message value.
func DecodeEventPayload(b []byte) (EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return EventPayload{}, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return p, nil
}
