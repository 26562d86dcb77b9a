package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	kafkax "alert-notification-service/internal/kafka"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

// Ingestor publishes derived events through the idempotency guard.
type Ingestor interface {
	Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error)
}

// MarketHandler consumes market change topics. Its consumer always acks: a bad
// market message is logged and dropped rather than retried into an alert storm.
type MarketHandler struct {
	engine   *Engine
	ingestor Ingestor
	logger   *logging.Logger
}

func NewMarketHandler(engine *Engine, ingestor Ingestor, logger *logging.Logger) *MarketHandler {
	return &MarketHandler{engine: engine, ingestor: ingestor, logger: logger}
}

func (h *MarketHandler) Handle(ctx context.Context, msg kafka.Message) error {
	correlationID := kafkax.CorrelationID(msg)
	log := h.logger.WithCorrelation(correlationID)

	payload, err := models.DecodeEventPayload(msg.Value)
	if err != nil {
		return err
	}
	change, err := ChangeFromPayload(payload)
	if err != nil {
		return err
	}

	fired, evalErr := h.engine.Evaluate(ctx, change)
	if len(fired) == 0 {
		log.Debugf("No alerts fired for %s %s%s", change.Source, change.AssetID, change.RateType)
	}

	var errs []error
	if evalErr != nil {
		errs = append(errs, evalErr)
	}
	for _, a := range fired {
		event := TriggeredEvent(a, change)
		if _, err := h.ingestor.Ingest(ctx, event, correlationID); err != nil {
			errs = append(errs, fmt.Errorf("publish trigger of alert %s: %w", a.ID, err))
			continue
		}
		log.Infof("Alert %s fired for user %s (%s %s %s at %s)",
			a.ID, a.UserID, a.Kind, a.Condition, a.Threshold, change.Value)
	}
	return errors.Join(errs...)
}
