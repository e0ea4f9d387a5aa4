package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/internal/service"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func mapErrorStatus(err error) int {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidItems),
		errors.Is(err, service.ErrInvalidField),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrUnknownLesson):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientSpace):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrLessonNotFound), errors.Is(err, service.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, service.ErrStoreNotInitialized),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// isBreakerSuccess counts only store outages against the breaker; a
// rejected order is a healthy answer.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	return mapErrorStatus(err) < fiber.StatusInternalServerError
}

func errorBody(status int, err error) fiber.Map {
	switch status {
	case fiber.StatusServiceUnavailable:
		return fiber.Map{"error": "Service temporarily unavailable"}
	case fiber.StatusInternalServerError:
		return fiber.Map{"error": "Internal server error"}
	}

	body := fiber.Map{"error": err.Error()}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		if svcErr.Field != "" {
			body["field"] = svcErr.Field
		}
		if svcErr.LessonID != "" {
			body["lessonId"] = svcErr.LessonID
		}
	}

	return body
}

func respondError(c *fiber.Ctx, ctx context.Context, logger *zap.Logger, msg string, err error) error {
	status := mapErrorStatus(err)

	if status >= fiber.StatusInternalServerError {
		mylogger.Error(ctx, logger, msg, zap.Int("http_status", status), zap.Error(err))
	} else {
		mylogger.Warn(ctx, logger, msg, zap.Int("http_status", status), zap.Error(err))
	}

	return c.Status(status).JSON(errorBody(status, err))
}
