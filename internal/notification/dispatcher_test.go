package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/providers"
)

type fixture struct {
	store *fakeStore
	email *fakeProvider
	inApp *fakeProvider
	d     *Dispatcher
}

func newFixture(at time.Time) *fixture {
	f := &fixture{
		store: newFakeStore(),
		email: &fakeProvider{channel: models.ChannelEmail},
		inApp: &fakeProvider{channel: models.ChannelInApp},
	}
	f.store.templates[models.EventTypePayment] = models.NotificationTemplate{
		EventType: models.EventTypePayment,
		Subject:   "Payment of {{amount}}",
		Body:      "You paid {{amount}} to {{merchant.name}}",
	}
	f.d = NewDispatcher(f.store, []providers.ChannelProvider{f.email, f.inApp}, time.UTC, logging.Discard())
	f.d.now = func() time.Time { return at }
	return f
}

func paymentEvent() models.EventPayload {
	return models.EventPayload{
		EventID:     "evt-1",
		EventType:   models.EventTypePayment,
		RecipientID: "user-1",
		Metadata: map[string]interface{}{
			"amount":   "100 USD",
			"merchant": map[string]interface{}{"name": "Acme"},
		},
	}
}

var noon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestDispatch_NoPreferences(t *testing.T) {
	f := newFixture(noon)

	err := f.d.Dispatch(context.Background(), paymentEvent(), "corr")
	if !errors.Is(err, ErrPreferencesNotFound) {
		t.Fatalf("Dispatch() error = %v, want ErrPreferencesNotFound", err)
	}
	if f.store.templateCalls != 0 {
		t.Errorf("template loaded %d times, want 0", f.store.templateCalls)
	}
	if len(f.store.notifications) != 0 || f.email.count() != 0 {
		t.Errorf("records=%d sends=%d, want none", len(f.store.notifications), f.email.count())
	}
}

func TestDispatch_NoTemplate(t *testing.T) {
	f := newFixture(noon)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail}}
	ev := paymentEvent()
	ev.EventType = models.EventTypeSecurity

	if err := f.d.Dispatch(context.Background(), ev, ""); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Dispatch() error = %v, want ErrTemplateNotFound", err)
	}
	if len(f.store.notifications) != 0 {
		t.Error("no notification should be stored without a template")
	}
}

func TestDispatch_FansOutToAuthorizedChannels(t *testing.T) {
	f := newFixture(noon)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp}}

	if err := f.d.Dispatch(context.Background(), paymentEvent(), "corr"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(f.store.notifications) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(f.store.notifications))
	}
	n := f.store.notifications[0]
	if n.Title != "Payment of 100 USD" || n.Body != "You paid 100 USD to Acme" || n.Type != models.EventTypePayment {
		t.Errorf("notification = %+v", n)
	}
	if f.email.count() != 1 || f.inApp.count() != 1 {
		t.Errorf("email=%d inApp=%d, want 1 each", f.email.count(), f.inApp.count())
	}
	if got := f.email.calls[0]; got.userID != "user-1" || got.msg.NotificationID != n.ID || got.msg.Subject != n.Title {
		t.Errorf("email call = %+v", got)
	}
}

func TestDispatch_PreferenceFiltering(t *testing.T) {
	tests := []struct {
		name      string
		pref      models.UserPreference
		at        time.Time
		wantEmail int
		wantInApp int
	}{
		{
			name:      "opt-in only email",
			pref:      models.UserPreference{Channels: []models.Channel{models.ChannelEmail}},
			at:        noon,
			wantEmail: 1,
		},
		{
			name: "disabled event type",
			pref: models.UserPreference{Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
				DisabledEventTypes: []models.EventType{models.EventTypePayment}},
			at: noon,
		},
		{
			name: "inside wrapping quiet hours",
			pref: models.UserPreference{Channels: []models.Channel{models.ChannelEmail},
				QuietHoursStart: "22:00", QuietHoursEnd: "07:00"},
			at: time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC),
		},
		{
			name: "after wrapping quiet hours",
			pref: models.UserPreference{Channels: []models.Channel{models.ChannelEmail},
				QuietHoursStart: "22:00", QuietHoursEnd: "07:00"},
			at:        time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			wantEmail: 1,
		},
		{
			name: "malformed quiet hours suppress",
			pref: models.UserPreference{Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
				QuietHoursStart: "10pm", QuietHoursEnd: "07:00"},
			at: noon,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.at)
			tt.pref.UserID = "user-1"
			f.store.prefs["user-1"] = tt.pref

			if err := f.d.Dispatch(context.Background(), paymentEvent(), ""); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if len(f.store.notifications) != 1 {
				t.Errorf("stored %d notifications, want 1 regardless of channels", len(f.store.notifications))
			}
			if f.email.count() != tt.wantEmail || f.inApp.count() != tt.wantInApp {
				t.Errorf("email=%d inApp=%d, want %d and %d", f.email.count(), f.inApp.count(), tt.wantEmail, tt.wantInApp)
			}
		})
	}
}

func TestDispatch_QuietHoursUseLocation(t *testing.T) {
	f := newFixture(time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC)) // 23:30 at UTC-3
	f.d.location = time.FixedZone("UTC-3", -3*60*60)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail},
		QuietHoursStart: "22:00", QuietHoursEnd: "07:00"}

	if err := f.d.Dispatch(context.Background(), paymentEvent(), ""); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.email.count() != 0 {
		t.Error("email sent inside local quiet hours")
	}
}

func TestDispatch_ProviderFailureIsReturned(t *testing.T) {
	f := newFixture(noon)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp}}
	f.email.err = providers.ErrDeliveryFailed

	err := f.d.Dispatch(context.Background(), paymentEvent(), "")
	if !errors.Is(err, providers.ErrDeliveryFailed) {
		t.Fatalf("Dispatch() error = %v, want ErrDeliveryFailed", err)
	}
	if f.inApp.count() != 1 {
		t.Error("a failing channel must not stop the others")
	}
	if len(f.store.notifications) != 1 {
		t.Error("the notification is stored before delivery")
	}
}

func TestDispatch_RequestedChannelsNarrow(t *testing.T) {
	f := newFixture(noon)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp}}
	ev := paymentEvent()
	ev.Metadata["channels"] = []interface{}{"IN_APP"}

	if err := f.d.Dispatch(context.Background(), ev, ""); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.email.count() != 0 || f.inApp.count() != 1 {
		t.Errorf("email=%d inApp=%d, want 0 and 1", f.email.count(), f.inApp.count())
	}
}

func TestDispatch_CarriesAlertID(t *testing.T) {
	const alertID = "5b1f0a52-8c6e-4d83-9a57-3f1c2e7d9b40"
	tests := []struct {
		name   string
		id     string
		wantID bool
	}{
		{name: "uuid alert id is linked", id: alertID, wantID: true},
		{name: "foreign alert id stays in metadata", id: "alert-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(noon)
			f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1"}
			ev := paymentEvent()
			ev.Metadata["alertId"] = tt.id

			if err := f.d.Dispatch(context.Background(), ev, ""); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			n := f.store.notifications[0]
			if got := n.AlertID != nil && *n.AlertID == tt.id; got != tt.wantID {
				t.Errorf("AlertID = %v, want linked=%v", n.AlertID, tt.wantID)
			}
			if n.Metadata["alertId"] != tt.id {
				t.Errorf("metadata alertId = %v, want %s", n.Metadata["alertId"], tt.id)
			}
		})
	}
}

func TestDispatch_StoreFailureIsTechnical(t *testing.T) {
	f := newFixture(noon)
	f.store.prefs["user-1"] = models.UserPreference{UserID: "user-1", Channels: []models.Channel{models.ChannelEmail}}
	f.store.createErr = errors.New("deadlock detected")

	err := f.d.Dispatch(context.Background(), paymentEvent(), "")
	if err == nil || IsBusinessDiscard(err) {
		t.Errorf("Dispatch() error = %v, want a technical error", err)
	}
	if f.email.count() != 0 {
		t.Error("nothing is sent when the record could not be stored")
	}
}
