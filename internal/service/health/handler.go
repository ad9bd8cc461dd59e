package health

import (
	"github.com/gofiber/fiber/v2"
)

// FiberHandler creates Fiber routes for health checks
type FiberHandler struct {
	service *Service
}

// NewFiberHandler creates a new Fiber health handler
func NewFiberHandler(service *Service) *FiberHandler {
	return &FiberHandler{service: service}
}

// RegisterRoutes registers health check routes
func (h *FiberHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/health/live", h.Health)
	app.Get("/health/ready", h.Ready)
	app.Get("/healthz", h.Health) // Kubernetes alias
	app.Get("/readyz", h.Ready)   // Kubernetes alias
}

// Health handles the liveness probe
func (h *FiberHandler) Health(c *fiber.Ctx) error {
	response := h.service.Health(c.Context())
	return c.Status(fiber.StatusOK).JSON(response)
}

// Ready handles the readiness probe
func (h *FiberHandler) Ready(c *fiber.Ctx) error {
	response := h.service.Ready(c.Context())

	status := fiber.StatusOK
	if !response.Ready {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(response)
}
