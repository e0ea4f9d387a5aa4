package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/pkg/metrics"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L}\s]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]+$`)
)

// releaseTimeout bounds compensation, which runs detached from the
// caller's context.
const releaseTimeout = 5 * time.Second

// OrderLine is one requested item. Qty is kept as a raw number so that
// fractional or negative input is rejected here rather than truncated.
type OrderLine struct {
	LessonID string  `json:"id"`
	Qty      float64 `json:"qty"`
}

type OrderService interface {
	SubmitOrder(ctx context.Context, name, phone string, items []OrderLine) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

type orderService struct {
	lessonRepo repository.LessonRepository
	orderRepo  repository.OrderRepository
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	tracer     trace.Tracer
}

type OrderOption func(*orderService)

func WithClock(now func() time.Time) OrderOption {
	return func(s *orderService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) OrderOption {
	return func(s *orderService) {
		s.metrics = m
	}
}

func NewOrderService(
	lessonRepo repository.LessonRepository,
	orderRepo repository.OrderRepository,
	logger *zap.Logger,
	opts ...OrderOption,
) OrderService {
	s := &orderService{
		lessonRepo: lessonRepo,
		orderRepo:  orderRepo,
		logger:     logger,
		now:        time.Now,
		tracer:     otel.Tracer("service/order"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &Error{Kind: ErrOrderNotFound, Message: "Order not found"}
	}
	return order, err
}

func (s *orderService) SubmitOrder(ctx context.Context, name, phone string, lines []OrderLine) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SubmitOrder")
	defer span.End()

	order, err := s.submit(ctx, name, phone, lines)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveOrder(resultLabel(err), 0)
		return nil, err
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	s.metrics.ObserveOrder("accepted", order.TotalQty())

	mylogger.Info(
		ctx,
		s.logger,
		"Order accepted",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

func (s *orderService) submit(ctx context.Context, name, phone string, lines []OrderLine) (*domain.Order, error) {
	items, err := validateOrder(name, phone, lines)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if _, err := s.lessonRepo.GetByID(ctx, item.LessonID); err != nil {
			if errors.Is(err, repository.ErrLessonNotFound) {
				return nil, &Error{Kind: ErrUnknownLesson, Field: "items", LessonID: item.LessonID}
			}
			return nil, storeError(err)
		}
	}

	reserved := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		err := s.lessonRepo.ReserveSpace(ctx, item.LessonID, item.Qty)
		if err == nil {
			reserved = append(reserved, item)
			continue
		}

		s.release(ctx, reserved)

		switch {
		case errors.Is(err, repository.ErrInsufficientSpace):
			mylogger.Info(
				ctx,
				s.logger,
				"Order rejected, not enough space",
				zap.String("lesson_id", item.LessonID),
				zap.Int("quantity", item.Qty),
			)
			return nil, &Error{Kind: ErrInsufficientSpace, Field: "items", LessonID: item.LessonID}
		case errors.Is(err, repository.ErrLessonNotFound):
			return nil, &Error{Kind: ErrUnknownLesson, Field: "items", LessonID: item.LessonID}
		default:
			mylogger.Error(ctx, s.logger, "Failed to reserve space", zap.String("lesson_id", item.LessonID), zap.Error(err))
			return nil, storeError(err)
		}
	}

	order := &domain.Order{
		Name:      strings.TrimSpace(name),
		Phone:     phone,
		Items:     items,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.orderRepo.Create(ctx, order); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to persist order, releasing seats", zap.Error(err))
		s.release(ctx, reserved)
		return nil, storeError(err)
	}

	return order, nil
}

// release undoes reservations in reverse order. Failures are logged and
// the remaining items are still attempted.
func (s *orderService) release(ctx context.Context, reserved []domain.OrderItem) {
	if len(reserved) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for i := len(reserved) - 1; i >= 0; i-- {
		item := reserved[i]
		if err := s.lessonRepo.ReleaseSpace(ctx, item.LessonID, item.Qty); err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to release reserved space",
				zap.String("lesson_id", item.LessonID),
				zap.Int("quantity", item.Qty),
				zap.Error(err),
			)
		}
	}
}

func validateOrder(name, phone string, lines []OrderLine) ([]domain.OrderItem, error) {
	if strings.TrimSpace(name) == "" || !namePattern.MatchString(name) {
		return nil, newError(ErrInvalidName, "name", "name must contain only letters and spaces")
	}

	if !phonePattern.MatchString(phone) {
		return nil, newError(ErrInvalidPhone, "phone", "phone must contain only digits")
	}

	if len(lines) == 0 {
		return nil, newError(ErrInvalidItems, "items", "items must not be empty")
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for i, line := range lines {
		field := fmt.Sprintf("items[%d]", i)

		if strings.TrimSpace(line.LessonID) == "" {
			return nil, newError(ErrInvalidItems, field+".id", field+".id must not be empty")
		}
		if line.Qty <= 0 || line.Qty != math.Trunc(line.Qty) || line.Qty > math.MaxInt32 {
			return nil, newError(ErrInvalidItems, field+".qty", field+".qty must be a positive whole number")
		}

		items = append(items, domain.OrderItem{LessonID: line.LessonID, Qty: int(line.Qty)})
	}

	return items, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidItems):
		return "invalid"
	case errors.Is(err, ErrUnknownLesson):
		return "unknown_lesson"
	case errors.Is(err, ErrInsufficientSpace):
		return "insufficient_space"
	default:
		return "store_unavailable"
	}
}
