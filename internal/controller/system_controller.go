package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type systemController struct{}

func NewSystemController() ISystemController {
	return &systemController{}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}
