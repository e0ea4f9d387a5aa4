package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	outboxDomain "github.com/sakashimaa/lesson-booking/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type pgOrderRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewPostgresOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &pgOrderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/order_postgres"),
	}
}

const orderColumns = `id::text, name, phone, items, created_at, published_at, attempts, last_error`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Phone,
		&o.Items,
		&o.CreatedAt,
		&o.PublishedAt,
		&o.Attempts,
		&o.LastError,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgOrderRepo) Create(ctx context.Context, order *domain.Order) (string, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	query := `
		INSERT INTO orders (name, phone, items, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text
	`

	var id string
	if err := r.pool.QueryRow(ctx, query, order.Name, order.Phone, order.Items, order.CreatedAt).Scan(&id); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to insert order", zap.Error(err))
		return "", unavailable(err)
	}

	order.ID = id
	span.SetAttributes(attribute.String("order_id", id))

	return id, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, unavailable(err)
	}

	return o, nil
}

func (r *pgOrderRepo) ListUnpublished(ctx context.Context, limit int) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE published_at IS NULL
			AND attempts < $1
		ORDER BY created_at
	`
	args := []any{outboxDomain.MaxAttempts}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}

	return orders, nil
}

func (r *pgOrderRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgOrderRepo) MarkPublished(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE orders SET published_at = NOW() WHERE id = $1`, id)
}

func (r *pgOrderRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.exec(ctx, `UPDATE orders SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
}
