package models

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2026, 5, 10, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func TestUserPreference_InQuietHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		at         string
		want       bool
	}{
		{"overnight inside late", "22:00", "07:00", "23:30", true},
		{"overnight inside early", "22:00", "07:00", "03:15", true},
		{"overnight outside", "22:00", "07:00", "08:00", false},
		{"overnight end exclusive", "22:00", "07:00", "07:00", false},
		{"overnight start inclusive", "22:00", "07:00", "22:00", true},
		{"daytime inside", "09:00", "17:00", "12:00", true},
		{"daytime outside", "09:00", "17:00", "18:00", false},
		{"equal bounds always quiet", "09:00", "09:00", "09:00", true},
		{"equal bounds always quiet midnight", "09:00", "09:00", "00:00", true},
		{"equal bounds always quiet evening", "09:00", "09:00", "21:45", true},
		{"not configured", "", "", "23:30", false},
		{"half configured", "22:00", "", "12:00", true},
		{"unparseable", "late", "07:00", "12:00", true},
		{"out of range", "25:00", "07:00", "12:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &UserPreference{QuietHoursStart: tt.start, QuietHoursEnd: tt.end}
			if got := p.InQuietHours(at(tt.at)); got != tt.want {
				t.Errorf("InQuietHours(%s) with %s-%s = %v, want %v", tt.at, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestUserPreference_QuietHoursError(t *testing.T) {
	tests := []struct {
		start, end string
		wantErr    bool
	}{
		{"", "", false},
		{"22:00", "07:00", false},
		{"22:00", "", true},
		{"10pm", "07:00", true},
	}
	for _, tt := range tests {
		p := &UserPreference{QuietHoursStart: tt.start, QuietHoursEnd: tt.end}
		if err := p.QuietHoursError(); (err != nil) != tt.wantErr {
			t.Errorf("QuietHoursError(%q, %q) = %v, want error %v", tt.start, tt.end, err, tt.wantErr)
		}
	}
}

func TestUserPreference_DisabledEventTypeBlocksEveryChannel(t *testing.T) {
	p := &UserPreference{
		Channels:           []Channel{ChannelEmail, ChannelInApp, ChannelTelegram, ChannelSMS},
		DisabledEventTypes: []EventType{EventTypeMarketing},
	}
	for _, c := range []Channel{ChannelEmail, ChannelInApp, ChannelTelegram, ChannelSMS} {
		if p.CanReceiveEventVia(EventTypeMarketing, c, at("12:00")) {
			t.Errorf("disabled event type delivered via %s", c)
		}
		if !p.CanReceiveEventVia(EventTypePayment, c, at("12:00")) {
			t.Errorf("enabled event type blocked via %s", c)
		}
	}
}

func TestUserPreference_CanReceiveEventVia(t *testing.T) {
	p := &UserPreference{
		Channels:        []Channel{ChannelEmail},
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "07:00",
	}
	if !p.CanReceiveEventVia(EventTypeAlertTriggered, ChannelEmail, at("08:00")) {
		t.Error("opted-in channel outside quiet hours should deliver")
	}
	if p.CanReceiveEventVia(EventTypeAlertTriggered, ChannelInApp, at("08:00")) {
		t.Error("channel not opted-in should not deliver")
	}
	if p.CanReceiveEventVia(EventTypeAlertTriggered, ChannelEmail, at("23:30")) {
		t.Error("quiet hours should block delivery")
	}
}
