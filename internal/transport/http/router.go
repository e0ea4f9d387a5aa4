package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sakashimaa/lesson-booking/internal/transport/http/handler"
	"github.com/sakashimaa/lesson-booking/pkg/metrics"
)

type Handlers struct {
	Lesson *handler.LessonHandler
	Order  *handler.OrderHandler
	Image  *handler.ImageHandler
	Health *handler.HealthHandler
}

var routeIndex = []string{
	"GET /health",
	"GET /lessons",
	"GET /lessons/:id",
	"GET /search?query=",
	"POST /orders",
	"GET /orders/:id",
	"PUT /lessons/:id",
	"GET /images/:file",
	"GET /metrics",
}

func RegisterRoutes(app *fiber.App, h *Handlers, m *metrics.Metrics) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "OK",
			"routes": routeIndex,
		})
	})

	app.Get("/health", h.Health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	lessons := app.Group("/lessons")
	lessons.Get("", h.Lesson.List)
	lessons.Get("/:id", h.Lesson.Get)
	lessons.Put("/:id", h.Lesson.Update)

	app.Get("/search", h.Lesson.Search)

	orders := app.Group("/orders")
	orders.Post("", h.Order.Create)
	orders.Get("/:id", h.Order.Get)

	app.Get("/images/:file", h.Image.Serve)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
			"path":  c.OriginalURL(),
		})
	})
}
