package domain

import "time"

const EventOrderPlaced = "OrderPlaced"

type OrderPlacedEvent struct {
	OrderID   string      `json:"order_id"`
	Name      string      `json:"name"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:   o.ID,
		Name:      o.Name,
		Items:     o.Items,
		CreatedAt: o.CreatedAt,
	}
}
