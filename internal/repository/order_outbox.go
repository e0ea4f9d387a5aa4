package repository

import (
	"context"
	"encoding/json"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	outboxDomain "github.com/sakashimaa/lesson-booking/pkg/outbox/domain"
	"github.com/sakashimaa/lesson-booking/pkg/outbox/worker"
)

// orderOutbox exposes unpublished orders as OrderPlaced outbox events.
type orderOutbox struct {
	orders OrderRepository
	topic  string
}

func NewOrderOutbox(orders OrderRepository, topic string) worker.OutboxRepository {
	return &orderOutbox{orders: orders, topic: topic}
}

type eventEnvelope struct {
	Event   string                  `json:"event"`
	Payload domain.OrderPlacedEvent `json:"payload"`
}

func (o *orderOutbox) GetUnpublishedEvents(ctx context.Context, batchSize int) ([]*outboxDomain.OutboxEvent, error) {
	orders, err := o.orders.ListUnpublished(ctx, batchSize)
	if err != nil {
		return nil, err
	}

	events := make([]*outboxDomain.OutboxEvent, 0, len(orders))
	for i := range orders {
		order := &orders[i]

		payload, err := json.Marshal(eventEnvelope{
			Event:   domain.EventOrderPlaced,
			Payload: domain.NewOrderPlacedEvent(order),
		})
		if err != nil {
			return nil, err
		}

		events = append(events, &outboxDomain.OutboxEvent{
			ID:            order.ID,
			AggregateType: "Order",
			AggregateID:   order.ID,
			EventType:     domain.EventOrderPlaced,
			Payload:       payload,
			CreatedAt:     order.CreatedAt,
			Attempts:      order.Attempts,
			Topic:         o.topic,
		})
	}

	return events, nil
}

func (o *orderOutbox) MarkEventPublished(ctx context.Context, eventID string) error {
	return o.orders.MarkPublished(ctx, eventID)
}

func (o *orderOutbox) MarkEventFailed(ctx context.Context, eventID string, errMsg string) error {
	return o.orders.MarkFailed(ctx, eventID, errMsg)
}
