package api

import (
	"context"
	"errors"
	"sync"

	"alert-notification-service/internal/alerting"
	"alert-notification-service/internal/db"
	"alert-notification-service/internal/events"
	"alert-notification-service/internal/models"
)

type ingestCall struct {
	payload       models.EventPayload
	correlationID string
}

type fakeIngestor struct {
	mu    sync.Mutex
	seen  map[string]bool
	calls []ingestCall
	err   error
}

func (f *fakeIngestor) Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ingestCall{payload: p, correlationID: correlationID})
	if f.err != nil {
		return false, f.err
	}
	if err := p.Validate(); err != nil {
		return false, errors.Join(events.ErrInvalidEvent, err)
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[p.EventID] {
		return true, nil
	}
	f.seen[p.EventID] = true
	return false, nil
}

type fakeStore struct {
	notifications []models.Notification
	listArgs      [2]int
	readIDs       map[string]bool
	prefs         map[string]models.UserPreference
	pingErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{readIDs: map[string]bool{}, prefs: map[string]models.UserPreference{}}
}

func (s *fakeStore) ListNotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	s.listArgs = [2]int{limit, offset}
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.readIDs[id] = true
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, item := range s.notifications {
		if item.UserID == userID && !s.readIDs[item.ID] {
			s.readIDs[item.ID] = true
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) SoftDeleteNotification(ctx context.Context, userID, id string) error {
	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) GetPreference(ctx context.Context, userID string) (models.UserPreference, error) {
	p, ok := s.prefs[userID]
	if !ok {
		return models.UserPreference{}, db.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

type fakeAlerts struct {
	created   []alerting.CreateAlertRequest
	createErr error
	alerts    []models.Alert
	statusErr error
}

func (f *fakeAlerts) Create(ctx context.Context, req alerting.CreateAlertRequest) (models.Alert, error) {
	if f.createErr != nil {
		return models.Alert{}, f.createErr
	}
	f.created = append(f.created, req)
	return models.Alert{ID: "alert-1", UserID: req.UserID, Kind: req.Kind, Status: models.AlertStatusActive}, nil
}

func (f *fakeAlerts) List(ctx context.Context, userID string) ([]models.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAlerts) Pause(ctx context.Context, userID, id string) error  { return f.statusErr }
func (f *fakeAlerts) Resume(ctx context.Context, userID, id string) error { return f.statusErr }
func (f *fakeAlerts) Delete(ctx context.Context, userID, id string) error { return f.statusErr }

type fakeMarket struct {
	status models.MarketStatus
	movers models.TopMovers
	err    error
}

func (f *fakeMarket) MarketStatus(ctx context.Context) (models.MarketStatus, error) {
	return f.status, f.err
}

func (f *fakeMarket) TopMovers(ctx context.Context) (models.TopMovers, error) {
	return f.movers, f.err
}
