package providers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/utils"
)

// TelegramSender is satisfied by *bot.Bot.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// NewTelegramBot builds a bot client without the startup getMe round trip.
func NewTelegramBot(token string) (*bot.Bot, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return b, nil
}

type TelegramProvider struct {
	contacts ContactPoints
	sender   TelegramSender
	limiter  *rate.Limiter
	backoff  utils.Backoff
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewTelegramProvider limits sends to ratePerSecond across all users.
func NewTelegramProvider(contacts ContactPoints, sender TelegramSender, ratePerSecond int, backoff utils.Backoff, logger *logging.Logger, m *metrics.Metrics) *TelegramProvider {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	return &TelegramProvider{
		contacts: contacts,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		backoff:  backoff,
		logger:   logger,
		metrics:  m,
	}
}

func (p *TelegramProvider) Channel() models.Channel { return models.ChannelTelegram }

func (p *TelegramProvider) Send(ctx context.Context, userID string, msg models.Rendered, correlationID string) error {
	cp, ok, err := contactFor(ctx, p.contacts, p.logger, userID, models.ChannelTelegram, correlationID)
	if err != nil || !ok {
		return err
	}
	chatID := cp.ConfigInt64("chat_id")
	if chatID == 0 {
		p.logger.WithCorrelation(correlationID).Warnf("Telegram contact point %s of user %s has no chat_id", cp.ID, userID)
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body),
	}
	err = utils.Retry(ctx, p.logger, p.backoff, "telegram notification "+msg.NotificationID, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return utils.Permanent(fmt.Errorf("telegram rate limit wait: %w", err))
		}
		if _, err := p.sender.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
		}
		return nil
	})
	p.metrics.Delivery(string(models.ChannelTelegram), err)
	if err != nil {
		return deliveryFailed(models.ChannelTelegram, userID, err)
	}
	return nil
}
