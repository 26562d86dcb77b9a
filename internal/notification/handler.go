package notification

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	kafkax "alert-notification-service/internal/kafka"
	"alert-notification-service/internal/models"
)

// AlertHandler consumes dispatchable topics. Pair it with DispatchPolicy.
type AlertHandler struct {
	dispatcher *Dispatcher
}

func NewAlertHandler(d *Dispatcher) *AlertHandler {
	return &AlertHandler{dispatcher: d}
}

func (h *AlertHandler) Handle(ctx context.Context, msg kafka.Message) error {
	payload, err := models.DecodeEventPayload(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return h.dispatcher.Dispatch(ctx, payload, kafkax.CorrelationID(msg))
}
