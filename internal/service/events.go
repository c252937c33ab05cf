package service

import (
	"context"
	"encoding/json"
	"time"

	"fabro-storefront/internal/client"
	"fabro-storefront/internal/model"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderStatusChanged = "order.status.changed"
)

type OrderEvent struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	OrderID       string              `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	TotalAmount   float64             `json:"total_amount"`
	Actor         string              `json:"actor,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// EventEmitter publishes order events. Publishing is best effort: failures are logged.
type EventEmitter struct {
	publisher client.EventPublisher
	logger    *zap.Logger
}

func NewEventEmitter(publisher client.EventPublisher, logger *zap.Logger) *EventEmitter {
	if publisher == nil {
		publisher = client.NoopPublisher{}
	}
	return &EventEmitter{publisher: publisher, logger: logger}
}

func (e *EventEmitter) Emit(ctx context.Context, eventType string, order *model.Order, actor string) {
	event := OrderEvent{
		ID:            ulid.Make().String(),
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Actor:         actor,
		OccurredAt:    time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		return
	}

	if err := e.publisher.Publish(ctx, eventType, event.ID, body); err != nil {
		e.logger.Warn("publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}
