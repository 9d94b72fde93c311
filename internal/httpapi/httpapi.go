// Package httpapi serves the tool registry as a small JSON API.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/agentic-research/yxflow/internal/tools"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// New returns the API:
//
//	GET  /healthz
//	GET  /api/tools
//	POST /api/tools/:name   body: JSON object of arguments
func New(reg *tools.Registry, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "yxflow"})

	app.Use(func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debugw("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"elapsed", time.Since(start),
		)
		return err
	})

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/api/tools", func(c fiber.Ctx) error {
		return c.JSON(reg.Tools())
	})

	app.Post("/api/tools/:name", func(c fiber.Ctx) error {
		name := c.Params("name")
		if _, ok := reg.Lookup(name); !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown tool: " + name})
		}
		args, err := tools.ParseArgs(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(reg.Failure(name, err))
		}
		res, err := reg.Call(c.Context(), name, args)
		if err != nil {
			return c.Status(Status(err)).JSON(reg.Failure(name, err))
		}
		return c.JSON(res)
	})

	return app
}

// Status maps an error category to an HTTP status code.
func Status(err error) int {
	switch workflow.Kind(err) {
	case "not_found":
		return fiber.StatusNotFound
	case "format", "invalid_argument", "structure":
		return fiber.StatusBadRequest
	case "duplicate_id":
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// Serve runs app on addr until ctx is done.
func Serve(ctx context.Context, app *fiber.App, addr string, log *zap.SugaredLogger) error {
	log.Infow("serving HTTP", "addr", addr)
	return app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
		GracefulContext:       ctx,
	})
}
