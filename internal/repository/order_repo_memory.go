package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	outboxDomain "github.com/sakashimaa/lesson-booking/pkg/outbox/domain"
)

type memoryOrderRepo struct {
	mu     sync.RWMutex
	order  []string
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() OrderRepository {
	return &memoryOrderRepo{
		orders: make(map[string]*domain.Order),
	}
}

func cloneOrder(o *domain.Order) domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return c
}

func (r *memoryOrderRepo) Create(ctx context.Context, order *domain.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = uuid.NewString()
	stored := cloneOrder(order)
	r.orders[order.ID] = &stored
	r.order = append(r.order, order.ID)

	return order.ID, nil
}

func (r *memoryOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	c := cloneOrder(o)
	return &c, nil
}

func (r *memoryOrderRepo) ListUnpublished(ctx context.Context, limit int) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, id := range r.order {
		if limit > 0 && len(orders) >= limit {
			break
		}
		o := r.orders[id]
		if o.PublishedAt == nil && o.Attempts < outboxDomain.MaxAttempts {
			orders = append(orders, cloneOrder(o))
		}
	}

	return orders, nil
}

func (r *memoryOrderRepo) MarkPublished(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}

	now := time.Now().UTC()
	o.PublishedAt = &now
	return nil
}

func (r *memoryOrderRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}

	o.Attempts++
	o.LastError = &reason
	return nil
}
