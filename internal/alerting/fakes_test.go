package alerting

import (
	"context"
	"sync"
	"time"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/models"
)

// fakeRepo stores alerts in memory and honours the version column.
type fakeRepo struct {
	mu       sync.Mutex
	alerts   map[string]models.Alert
	saveErr  error
	conflict map[string]bool
}

func newFakeRepo(alerts ...models.Alert) *fakeRepo {
	r := &fakeRepo{alerts: map[string]models.Alert{}, conflict: map[string]bool{}}
	for _, a := range alerts {
		r.alerts[a.ID] = a
	}
	return r
}

func (r *fakeRepo) FindActiveAlertsByAsset(ctx context.Context, assetID string) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, a := range r.alerts {
		if a.Status == models.AlertStatusActive && a.DeletedAt == nil && a.AssetID != nil && *a.AssetID == assetID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindActiveAlertsByKind(ctx context.Context, kind models.AlertKind) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, a := range r.alerts {
		if a.Status == models.AlertStatusActive && a.DeletedAt == nil && a.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) SaveTriggerState(ctx context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored := r.alerts[a.ID]
	if r.conflict[a.ID] || stored.Version != a.Version {
		return db.ErrVersionConflict
	}
	a.Version++
	r.alerts[a.ID] = *a
	return nil
}

func (r *fakeRepo) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = time.Now().Format("150405.000000000")
	}
	r.alerts[a.ID] = a
	return a, nil
}

func (r *fakeRepo) CountActiveAlertsByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.UserID == userID && a.Status == models.AlertStatusActive && a.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListAlertsByUser(ctx context.Context, userID string) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, a := range r.alerts {
		if a.UserID == userID && a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetAlert(ctx context.Context, userID, id string) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.UserID != userID || a.DeletedAt != nil {
		return models.Alert{}, db.ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) UpdateAlertStatus(ctx context.Context, userID, id string, status models.AlertStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.UserID != userID {
		return db.ErrNotFound
	}
	a.Status = status
	a.Version++
	r.alerts[id] = a
	return nil
}

func (r *fakeRepo) SoftDeleteAlert(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.UserID != userID || a.DeletedAt != nil {
		return db.ErrNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	r.alerts[id] = a
	return nil
}

func (r *fakeRepo) get(id string) models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alerts[id]
}

type fakeIngestor struct {
	mu     sync.Mutex
	events []models.EventPayload
	seen   map[string]bool
	err    error
}

func (f *fakeIngestor) Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[p.EventID] {
		return true, nil
	}
	f.seen[p.EventID] = true
	f.events = append(f.events, p)
	return false, nil
}
