package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.uber.org/zap"
)

type HealthHandler struct {
	catalog service.CatalogService
	dbName  string
	logger  *zap.Logger
	timeout time.Duration
}

func NewHealthHandler(catalog service.CatalogService, dbName string, logger *zap.Logger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		dbName:  dbName,
		logger:  logger,
		timeout: timeout,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.catalog.Ping(ctx); err != nil {
		mylogger.Error(ctx, h.logger, "health check failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":        true,
		"db":        h.dbName,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
