package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/pkg/metrics"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.uber.org/zap"
)

// NewRequestLogger logs one line per request and records it in m.
func NewRequestLogger(logger *zap.Logger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		elapsed := time.Since(start)
		m.ObserveRequest(c.Method(), c.Route().Path, strconv.Itoa(status), elapsed)

		mylogger.Info(
			c.UserContext(),
			logger,
			"request",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.IP()),
		)

		return err
	}
}
