package models

import (
	"fmt"
	"time"
)

const quietHoursLayout = "15:04"

// UserPreference holds a user's delivery settings. A user without one receives nothing.
type UserPreference struct {
	UserID             string      `json:"user_id"`
	Channels           []Channel   `json:"channels"`
	DisabledEventTypes []EventType `json:"disabled_event_types"`
	QuietHoursStart    string      `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd      string      `json:"quiet_hours_end,omitempty"`
	DigestFrequency    string      `json:"digest_frequency,omitempty"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// CanReceiveEventVia reports whether an event of type t may be delivered on c at at.
func (p *UserPreference) CanReceiveEventVia(t EventType, c Channel, at time.Time) bool {
	if p.IsEventDisabled(t) {
		return false
	}
	if !p.HasChannel(c) {
		return false
	}
	return !p.InQuietHours(at)
}

func (p *UserPreference) IsEventDisabled(t EventType) bool {
	for _, d := range p.DisabledEventTypes {
		if d == t {
			return true
		}
	}
	return false
}

func (p *UserPreference) HasChannel(c Channel) bool {
	for _, ch := range p.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// InQuietHours checks at's wall-clock minute against the configured window.
// The window is [start, end); it may wrap past midnight, and start == end means always quiet.
// No bounds means no quiet hours. A malformed window is always quiet.
func (p *UserPreference) InQuietHours(at time.Time) bool {
	if p.QuietHoursStart == "" && p.QuietHoursEnd == "" {
		return false
	}
	s, e, err := p.quietWindow()
	if err != nil {
		return true
	}
	now := at.Hour()*60 + at.Minute()

	switch {
	case s == e:
		return true
	case s < e:
		return now >= s && now < e
	default:
		return now >= s || now < e
	}
}

// QuietHoursError reports why a configured quiet-hours window cannot be used.
func (p *UserPreference) QuietHoursError() error {
	if p.QuietHoursStart == "" && p.QuietHoursEnd == "" {
		return nil
	}
	_, _, err := p.quietWindow()
	return err
}

// quietWindow returns the bounds as minutes after midnight.
func (p *UserPreference) quietWindow() (int, int, error) {
	start, err := time.Parse(quietHoursLayout, p.QuietHoursStart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quiet hours start %q", p.QuietHoursStart)
	}
	end, err := time.Parse(quietHoursLayout, p.QuietHoursEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quiet hours end %q", p.QuietHoursEnd)
	}
	return start.Hour()*60 + start.Minute(), end.Hour()*60 + end.Minute(), nil
}
