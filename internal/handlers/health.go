package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/models"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// Health reports liveness and whether the store answers a ping
func (h *Handler) Health(c *fiber.Ctx) error {
	resp := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.version,
		Storage:   "ok",
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), utils.HealthCheckTimeout)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Health check: store unreachable", "error", err)
			resp.Status = "degraded"
			resp.Storage = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
	}

	return c.JSON(resp)
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
