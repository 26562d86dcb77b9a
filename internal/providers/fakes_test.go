package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/models"
	"alert-notification-service/pkg/email"
)

type fakeContacts struct {
	points map[models.Channel]models.ContactPoint
	err    error
}

func (f *fakeContacts) GetContactPoint(ctx context.Context, userID string, channel models.Channel) (models.ContactPoint, error) {
	if f.err != nil {
		return models.ContactPoint{}, f.err
	}
	cp, ok := f.points[channel]
	if !ok || cp.UserID != userID {
		return models.ContactPoint{}, db.ErrNotFound
	}
	return cp, nil
}

func contactsWith(cps ...models.ContactPoint) *fakeContacts {
	f := &fakeContacts{points: map[models.Channel]models.ContactPoint{}}
	for _, cp := range cps {
		f.points[cp.Channel] = cp
	}
	return f
}

// fakeMailer fails the first failures calls.
type fakeMailer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []email.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: 451 try again later")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func rendered() models.Rendered {
	return models.Rendered{
		NotificationID: "n-1",
		EventType:      models.EventTypeAlertTriggered,
		Subject:        "GGAL above 8000",
		Body:           "GGAL traded at 8100",
		CreatedAt:      time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
	}
}
