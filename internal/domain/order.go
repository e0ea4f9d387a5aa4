package domain

import "time"

type Order struct {
	ID        string      `json:"id" bson:"-"`
	Name      string      `json:"name" bson:"name"`
	Phone     string      `json:"phone" bson:"phone"`
	Items     []OrderItem `json:"items" bson:"items"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`

	// outbox bookkeeping, stored alongside the order
	PublishedAt *time.Time `json:"-" bson:"publishedAt"`
	Attempts    int        `json:"-" bson:"attempts"`
	LastError   *string    `json:"-" bson:"lastError,omitempty"`
}

type OrderItem struct {
	LessonID string `json:"id" bson:"id"`
	Qty      int    `json:"qty" bson:"qty"`
}

func (o *Order) TotalQty() int {
	var total int
	for _, item := range o.Items {
		total += item.Qty
	}
	return total
}
