package providers

import (
	"context"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/utils"
	"alert-notification-service/pkg/email"
)

// Mailer is satisfied by *email.Failover.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

type EmailProvider struct {
	contacts ContactPoints
	mailer   Mailer
	from     string
	backoff  utils.Backoff
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewEmailProvider(contacts ContactPoints, mailer Mailer, from string, backoff utils.Backoff, logger *logging.Logger, m *metrics.Metrics) *EmailProvider {
	return &EmailProvider{contacts: contacts, mailer: mailer, from: from, backoff: backoff, logger: logger, metrics: m}
}

func (p *EmailProvider) Channel() models.Channel { return models.ChannelEmail }

// Send mails msg to the user's registered address, retrying with exponential
// backoff. Every backend of the mailer is tried on each attempt.
func (p *EmailProvider) Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error {
	cp, ok, err := contactFor(ctx, p.contacts, p.logger, userID, models.ChannelEmail, correlationID)
	if err != nil || !ok {
		return err
	}
	log := p.logger.WithCorrelation(correlationID)

	to := cp.ConfigString("email")
	if err := email.ValidateAddress(to); err != nil {
		log.Warnf("Email contact point %s of user %s is unusable: %v", cp.ID, userID, err)
		return nil
	}

	mail := email.Message{From: p.from, To: to, Subject: msg.Subject, Body: msg.Body}
	err = utils.Retry(ctx, p.logger, p.backoff, "email notification "+msg.NotificationID, func() error {
		return p.mailer.Send(ctx, mail)
	})
	p.metrics.Delivery(string(models.ChannelEmail), err)
	if err != nil {
		return deliveryFailed(models.ChannelEmail, userID, err)
	}
	log.Infof("Email notification %s sent to user %s", msg.NotificationID, userID)
	return nil
}
