package notification

import (
	"context"
	"fmt"
	"sync"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/models"
)

type fakeStore struct {
	mu            sync.Mutex
	prefs         map[string]models.UserPreference
	templates     map[models.EventType]models.NotificationTemplate
	notifications []models.Notification
	templateCalls int
	createErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:     map[string]models.UserPreference{},
		templates: map[models.EventType]models.NotificationTemplate{},
	}
}

func (s *fakeStore) GetPreference(ctx context.Context, userID string) (models.UserPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	if !ok {
		return models.UserPreference{}, db.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) GetTemplate(ctx context.Context, t models.EventType) (models.NotificationTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templateCalls++
	tmpl, ok := s.templates[t]
	if !ok {
		return models.NotificationTemplate{}, db.ErrNotFound
	}
	return tmpl, nil
}

func (s *fakeStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return models.Notification{}, s.createErr
	}
	n.ID = fmt.Sprintf("n-%d", len(s.notifications)+1)
	s.notifications = append(s.notifications, n)
	return n, nil
}

type sendCall struct {
	userID string
	msg    models.Rendered
}

type fakeProvider struct {
	mu      sync.Mutex
	channel models.Channel
	err     error
	calls   []sendCall
}

func (p *fakeProvider) Channel() models.Channel { return p.channel }

func (p *fakeProvider) Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, sendCall{userID: userID, msg: msg})
	return p.err
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
