package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"github.com/sakashimaa/lesson-booking/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type LessonHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewLessonHandler(catalog service.CatalogService, logger *zap.Logger, timeout time.Duration) *LessonHandler {
	return &LessonHandler{
		catalog: catalog,
		logger:  logger,
		cb:      utils.NewBreaker("CatalogService", logger, isBreakerSuccess),
		timeout: timeout,
	}
}

func (h *LessonHandler) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	lessons, err := utils.ExecuteWithBreaker(h.cb, func() ([]domain.Lesson, error) {
		return h.catalog.ListLessons(ctx)
	})
	if err != nil {
		return respondError(c, ctx, h.logger, "list lessons failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(lessons)
}

func (h *LessonHandler) Search(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	query := c.Query("query")

	lessons, err := utils.ExecuteWithBreaker(h.cb, func() ([]domain.Lesson, error) {
		return h.catalog.SearchLessons(ctx, query)
	})
	if err != nil {
		return respondError(c, ctx, h.logger, "search lessons failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(lessons)
}

func (h *LessonHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	lesson, err := utils.ExecuteWithBreaker(h.cb, func() (*domain.Lesson, error) {
		return h.catalog.GetLesson(ctx, id)
	})
	if errors.Is(err, service.ErrLessonNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
			"tried": id,
		})
	}
	if err != nil {
		return respondError(c, ctx, h.logger, "get lesson failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(lesson)
}

func (h *LessonHandler) Update(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	fields := make(map[string]any)
	if body := c.Body(); len(body) > 0 {
		if err := c.App().Config().JSONDecoder(body, &fields); err != nil {
			mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Request body must be a JSON object",
			})
		}
	}

	mylogger.Info(
		ctx,
		h.logger,
		"update lesson request",
		zap.String("lesson_id", id),
		zap.Int("fields", len(fields)),
	)

	lesson, err := utils.ExecuteWithBreaker(h.cb, func() (*domain.Lesson, error) {
		return h.catalog.UpdateLesson(ctx, id, fields)
	})
	if errors.Is(err, service.ErrLessonNotFound) {
		mylogger.Warn(ctx, h.logger, "lesson not found", zap.String("lesson_id", id))

		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
			"tried": id,
		})
	}
	if err != nil {
		return respondError(c, ctx, h.logger, "update lesson failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":     true,
		"lesson": lesson,
	})
}
