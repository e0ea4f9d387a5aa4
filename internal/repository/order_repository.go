package repository

import (
	"context"

	"github.com/sakashimaa/lesson-booking/internal/domain"
)

// OrderRepository persists accepted orders. Orders are immutable once
// created apart from their outbox bookkeeping.
type OrderRepository interface {
	// Create stores the order, assigns order.ID and returns it.
	Create(ctx context.Context, order *domain.Order) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListUnpublished returns orders still due for publishing, oldest
	// first. A limit <= 0 means no limit.
	ListUnpublished(ctx context.Context, limit int) ([]domain.Order, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
