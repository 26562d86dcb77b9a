// Package notification turns dispatchable events into persisted notifications
// and fans them out to the user's authorized channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/providers"
	"alert-notification-service/internal/templates"
)

// Store is the persistence the dispatcher reads and writes.
type Store interface {
	GetPreference(ctx context.Context, userID string) (models.UserPreference, error)
	GetTemplate(ctx context.Context, eventType models.EventType) (models.NotificationTemplate, error)
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
}

type Dispatcher struct {
	store     Store
	providers []providers.ChannelProvider
	location  *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

// NewDispatcher evaluates quiet hours in loc (UTC when nil).
func NewDispatcher(store Store, channelProviders []providers.ChannelProvider, loc *time.Location, logger *logging.Logger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{store: store, providers: channelProviders, location: loc, logger: logger, now: time.Now}
}

// Dispatch loads the recipient's preferences and the event template, persists
// one Notification and sends it concurrently to every authorized channel.
// A recipient without preferences or an event type without template yields a
// business error and nothing is rendered or stored.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.EventPayload, correlationID string) error {
	log := d.logger.WithCorrelation(correlationID)
	if payload.RecipientID == "" {
		return fmt.Errorf("%w: event %s has no recipient", ErrInvalidPayload, payload.EventID)
	}

	pref, err := d.store.GetPreference(ctx, payload.RecipientID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Infof("No preferences for user %s, discarding event %s", payload.RecipientID, payload.EventID)
			return fmt.Errorf("%w: user %s", ErrPreferencesNotFound, payload.RecipientID)
		}
		return err
	}
	if qErr := pref.QuietHoursError(); qErr != nil {
		log.Warnf("User %s has unusable quiet hours, suppressing delivery: %v", payload.RecipientID, qErr)
	}

	tmpl, err := d.store.GetTemplate(ctx, payload.EventType)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warnf("No template for event type %s, discarding event %s", payload.EventType, payload.EventID)
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, payload.EventType)
		}
		return err
	}

	subject, body := templates.Render(tmpl, payload)
	n := models.Notification{
		UserID:   payload.RecipientID,
		Title:    subject,
		Body:     body,
		Type:     payload.EventType,
		Metadata: payload.Metadata,
	}
	if alertID, ok := payload.MetadataString("alertId"); ok {
		// alert_id is a UUID column; foreign ids stay in metadata only.
		if _, perr := uuid.Parse(alertID); perr == nil {
			n.AlertID = &alertID
		} else {
			log.Warnf("Ignoring non-UUID alertId %q on event %s", alertID, payload.EventID)
		}
	}
	n, err = d.store.CreateNotification(ctx, n)
	if err != nil {
		return err
	}

	msg := models.Rendered{
		NotificationID: n.ID,
		EventType:      n.Type,
		Subject:        n.Title,
		Body:           n.Body,
		Metadata:       n.Metadata,
		CreatedAt:      n.CreatedAt,
	}
	targets := d.authorized(&pref, payload, d.now().In(d.location))
	if len(targets) == 0 {
		log.Infof("Notification %s stored for user %s; no channel authorized", n.ID, n.UserID)
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, p := range targets {
		wg.Add(1)
		go func(p providers.ChannelProvider) {
			defer wg.Done()
			if err := p.Send(ctx, n.UserID, msg, correlationID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("notification %s: %w", n.ID, errors.Join(errs...))
	}
	log.Infof("Notification %s dispatched to user %s on %d channel(s)", n.ID, n.UserID, len(targets))
	return nil
}

// authorized returns the providers allowed to deliver payload at at. When the
// event names requested channels (alert triggers do) they narrow the set further.
func (d *Dispatcher) authorized(pref *models.UserPreference, payload models.EventPayload, at time.Time) []providers.ChannelProvider {
	requested := requestedChannels(payload)
	var out []providers.ChannelProvider
	for _, p := range d.providers {
		c := p.Channel()
		if requested != nil && !requested[c] {
			continue
		}
		if pref.CanReceiveEventVia(payload.EventType, c, at) {
			out = append(out, p)
		}
	}
	return out
}

func requestedChannels(payload models.EventPayload) map[models.Channel]bool {
	var names []string
	switch v := payload.Metadata["channels"].(type) {
	case []string:
		names = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	default:
		return nil
	}
	set := make(map[models.Channel]bool, len(names))
	for _, n := range names {
		set[models.Channel(n)] = true
	}
	return set
}
