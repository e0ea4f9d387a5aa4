package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"github.com/sakashimaa/lesson-booking/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
	cb       *gobreaker.CircuitBreaker
	timeout  time.Duration
}

func NewOrderHandler(orders service.OrderService, logger *zap.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
		cb:       utils.NewBreaker("OrderService", logger, isBreakerSuccess),
		timeout:  timeout,
	}
}

// SubmitOrderInput only bounds sizes; content rules live in the service so
// that the first violation is always reported in the same order.
type SubmitOrderInput struct {
	Name  string              `json:"name" validate:"max=100"`
	Phone string              `json:"phone" validate:"max=20"`
	Items []service.OrderLine `json:"items" validate:"max=50"`
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(SubmitOrderInput)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "failed to parse order body", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid order payload. Expect { name, phone, items:[{id, qty}] }",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "order validation failed", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationError(err),
		})
	}

	order, err := utils.ExecuteWithBreaker(h.cb, func() (*domain.Order, error) {
		return h.orders.SubmitOrder(ctx, input.Name, input.Phone, input.Items)
	})
	if err != nil {
		return respondError(c, ctx, h.logger, "submit order failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"orderId": order.ID,
	})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	order, err := utils.ExecuteWithBreaker(h.cb, func() (*domain.Order, error) {
		return h.orders.GetOrder(ctx, id)
	})
	if errors.Is(err, service.ErrOrderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
			"tried": id,
		})
	}
	if err != nil {
		return respondError(c, ctx, h.logger, "get order failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(order)
}
