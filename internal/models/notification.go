package models

import (
	"time"
)

// Notification is the persisted, user-visible record of a dispatched message.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	AlertID   *string                `json:"alert_id,omitempty"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Type      EventType              `json:"type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	DeletedAt *time.Time             `json:"-"`
}

// NotificationTemplate is keyed by event type. Subject and Body may contain
// {{dotted.path}} placeholders resolved against event metadata.
type NotificationTemplate struct {
	EventType EventType `json:"event_type"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rendered is the compiled content handed to channel providers.
type Rendered struct {
	NotificationID string                 `json:"notification_id"`
	EventType      EventType              `json:"event_type"`
	Subject        string                 `json:"subject"`
	Body           string                 `json:"body"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ContactPoint is the transport address a user registered for a channel.
type ContactPoint struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Channel       Channel                `json:"channel"`
	Configuration map[string]interface{} `json:"configuration"`
	Status        string                 `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ConfigString returns a string configuration value such as "email" or "phone_number".
func (cp ContactPoint) ConfigString(key string) string {
	v, _ := cp.Configuration[key].(string)
	return v
}

// ConfigInt64 returns a numeric configuration value such as "chat_id". JSON numbers
// decode as float64 so both are accepted.
func (cp ContactPoint) ConfigInt64(key string) int64 {
	switch v := cp.Configuration[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
