package providers

import (
	"context"
	"fmt"
	"strings"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/utils"
)

// Texter is satisfied by *sms.Client.
type Texter interface {
	Send(toNumber, body string) error
}

type SMSProvider struct {
	contacts ContactPoints
	texter   Texter
	backoff  utils.Backoff
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewSMSProvider(contacts ContactPoints, texter Texter, backoff utils.Backoff, logger *logging.Logger, m *metrics.Metrics) *SMSProvider {
	return &SMSProvider{contacts: contacts, texter: texter, backoff: backoff, logger: logger, metrics: m}
}

func (p *SMSProvider) Channel() models.Channel { return models.ChannelSMS }

func (p *SMSProvider) Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error {
	cp, ok, err := contactFor(ctx, p.contacts, p.logger, userID, models.ChannelSMS, correlationID)
	if err != nil || !ok {
		return err
	}
	phone := cp.ConfigString("phone_number")
	if !strings.HasPrefix(phone, "+") {
		p.logger.WithCorrelation(correlationID).Warnf("SMS contact point %s of user %s has no E.164 phone_number", cp.ID, userID)
		return nil
	}

	body := fmt.Sprintf("%s\n%s", msg.Subject, msg.Body)
	err = utils.Retry(ctx, p.logger, p.backoff, "sms notification "+msg.NotificationID, func() error {
		return p.texter.Send(phone, body)
	})
	p.metrics.Delivery(string(models.ChannelSMS), err)
	if err != nil {
		return deliveryFailed(models.ChannelSMS, userID, err)
	}
	return nil
}
