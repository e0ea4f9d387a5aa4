package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.uber.org/zap"
)

type ImageHandler struct {
	dir    string
	logger *zap.Logger
}

func NewImageHandler(dir string, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{dir: dir, logger: logger}
}

// validImageName accepts a single path element only.
func validImageName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (h *ImageHandler) Serve(c *fiber.Ctx) error {
	name := c.Params("file")

	notFound := func() error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Image not found",
		})
	}

	if !validImageName(name) {
		mylogger.Warn(c.UserContext(), h.logger, "rejected image path", zap.String("file", name))
		return notFound()
	}

	path := filepath.Join(h.dir, name)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return notFound()
	}

	return c.SendFile(path)
}
