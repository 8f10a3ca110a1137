package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/models"
	"github.com/soltixdb/unitmetrics/internal/services"
)

// ErrorHandler returns a custom error handler middleware
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    "ERROR",
			Message: "Internal Server Error",
			Path:    c.Path(),
		}

		var (
			svcErr   *services.ServiceError
			fiberErr *fiber.Error
		)
		switch {
		case errors.As(err, &svcErr):
			status = svcErr.StatusCode()
			detail.Code = svcErr.Code
			detail.Message = svcErr.Message
			detail.Details = svcErr.Details
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			detail.Message = fiberErr.Message
			if status == fiber.StatusBadRequest {
				detail.Code = "VALIDATION_ERROR"
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err,
			)
		} else {
			logger.Debug("Request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err,
			)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}
